// SPDX-License-Identifier: EPL-2.0

package msgbus

import "errors"

var (
	// ErrClosed is returned when publishing to a closed bus
	ErrClosed = errors.New("message bus closed")

	// ErrTimeout is returned when the broker does not acknowledge in time
	ErrTimeout = errors.New("mqtt operation timed out")
)
