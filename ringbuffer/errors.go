// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import "errors"

var (
	// ErrNoMirror indicates the platform could not provide a virtual memory
	// mirror; the buffer falls back to replicated writes.
	ErrNoMirror = errors.New("virtual memory mirroring unavailable")

	// ErrTooSmall indicates a resize target cannot hold the unread data.
	ErrTooSmall = errors.New("ring buffer too small for pending data")
)
