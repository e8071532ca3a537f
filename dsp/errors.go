// SPDX-License-Identifier: EPL-2.0

package dsp

import "errors"

// ErrInvalidGate is returned for GateOptions that cannot form a gate.
var ErrInvalidGate = errors.New("invalid gate options")
