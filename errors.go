// SPDX-License-Identifier: EPL-2.0

package audacq

import "errors"

var (
	// ErrChannelMismatch is returned by Session.Run when the interface does
	// not provide the configured number of channels
	ErrChannelMismatch = errors.New("channel count mismatch")

	// ErrInvalidSession is returned by NewSession for unusable options
	ErrInvalidSession = errors.New("invalid session options")
)
