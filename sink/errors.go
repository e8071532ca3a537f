// SPDX-License-Identifier: EPL-2.0

package sink

import "errors"

var (
	// ErrUnknownKind is returned by ParseKind and New for unsupported kinds
	ErrUnknownKind = errors.New("unknown sink kind")

	// ErrNoEntry is returned when writing without an open entry
	ErrNoEntry = errors.New("no open entry")

	// ErrBadRange is returned when a write range lies outside the block
	ErrBadRange = errors.New("frame range outside block")

	// ErrClosed is returned by a sink after Close
	ErrClosed = errors.New("sink closed")

	// ErrBadChannel is returned for channel ids that cannot name a file
	ErrBadChannel = errors.New("invalid channel id")
)
