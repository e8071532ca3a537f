// SPDX-License-Identifier: EPL-2.0

package writer

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the consumer goroutine is
	// running or stopping.
	ErrAlreadyRunning = errors.New("writer already running")

	// ErrNotRunning is returned by WaitWriteSpace when no consumer is
	// draining the buffer.
	ErrNotRunning = errors.New("writer not running")

	// ErrBufferTooSmall is returned by WaitWriteSpace for requests the
	// buffer can never satisfy.
	ErrBufferTooSmall = errors.New("request exceeds buffer size")
)
