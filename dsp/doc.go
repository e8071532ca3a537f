// SPDX-License-Identifier: EPL-2.0

// Package dsp implements signal activity detection for streaming sample
// blocks.
//
// A CrossingCounter counts rising threshold crossings in fixed analysis
// periods and keeps a running sum over a window of periods. A
// CrossingTrigger (window discriminator) combines two counters into an
// open/closed gate with hysteresis: the gate opens when the crossing rate
// over the open window exceeds one count, and closes when the rate over the
// close window drops below another.
//
// None of the types allocate after construction, so Push may be called from
// a real-time callback. They are not safe for concurrent use, except for the
// threshold setters, which may be called from any goroutine.
package dsp
