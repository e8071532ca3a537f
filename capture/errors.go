// SPDX-License-Identifier: EPL-2.0

package capture

import "errors"

var (
	// ErrNoDevice is returned when no capture device matches the request
	ErrNoDevice = errors.New("no matching capture device")

	// ErrInvalidConfig is returned for non-positive rates, channels or periods
	ErrInvalidConfig = errors.New("invalid capture configuration")

	// ErrRunning is returned when Run is called on a device that is running
	ErrRunning = errors.New("capture device already running")
)
