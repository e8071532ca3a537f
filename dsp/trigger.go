// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"fmt"
	"sync/atomic"
)

// GateOptions configures a CrossingTrigger. Windows are given in analysis
// periods of PeriodSize samples. A count of zero disables the matching
// transition: with OpenCount 0 the gate never opens, with CloseCount 0 it
// never closes once open.
type GateOptions struct {
	OpenThreshold  float64
	OpenCount      int
	OpenPeriods    int
	CloseThreshold float64
	CloseCount     int
	ClosePeriods   int
	PeriodSize     int
}

// Validate checks that the options describe a usable gate.
func (o GateOptions) Validate() error {
	switch {
	case o.PeriodSize < 1:
		return fmt.Errorf("%w: period size %d", ErrInvalidGate, o.PeriodSize)
	case o.OpenPeriods < 1 || o.ClosePeriods < 1:
		return fmt.Errorf("%w: window of %d/%d periods", ErrInvalidGate, o.OpenPeriods, o.ClosePeriods)
	case o.OpenCount < 0 || o.CloseCount < 0:
		return fmt.Errorf("%w: count thresholds %d/%d", ErrInvalidGate, o.OpenCount, o.CloseCount)
	}
	return nil
}

// CrossingTrigger is a window discriminator: a gate that opens when the
// rate of threshold crossings over the open window exceeds OpenCount and
// closes when the rate over the close window falls below CloseCount.
//
// Only the counter for the current state is fed; the other one is idle
// until the next transition.
type CrossingTrigger[T Sample] struct {
	open        atomic.Bool
	openCounter *CrossingCounter[T]
	openCount   int

	closeCounter *CrossingCounter[T]
	// stored negated: the close side fires when the rate drops below it
	closeCount int
}

// NewCrossingTrigger creates a closed gate.
func NewCrossingTrigger[T Sample](opts GateOptions) (*CrossingTrigger[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &CrossingTrigger[T]{
		openCounter:  NewCrossingCounter(T(opts.OpenThreshold), opts.PeriodSize, opts.OpenPeriods),
		openCount:    opts.OpenCount,
		closeCounter: NewCrossingCounter(T(opts.CloseThreshold), opts.PeriodSize, opts.ClosePeriods),
		closeCount:   -opts.CloseCount,
	}, nil
}

// Push feeds samples to the active counter. If the gate changes state it
// returns the sample offset of the transition, rounded to the analysis
// period, and the rest of the block is fed to the other counter. Otherwise
// it returns -1.
func (g *CrossingTrigger[T]) Push(samples []T) int {
	return g.push(samples, nil)
}

// PushTrace is Push that also writes the normalized count of the active
// counter for every sample into trace.
func (g *CrossingTrigger[T]) PushTrace(samples []T, trace []float32) int {
	return g.push(samples, trace[:len(samples)])
}

func (g *CrossingTrigger[T]) push(samples []T, trace []float32) int {
	active, activeCount := g.openCounter, g.openCount
	next, nextCount := g.closeCounter, g.closeCount
	if g.open.Load() {
		active, activeCount, next, nextCount = next, nextCount, active, activeCount
	}

	per := active.push(samples, activeCount, trace)
	if per < 0 {
		return -1
	}

	offset := min(per*active.PeriodSize(), len(samples))
	g.open.Store(!g.open.Load())
	active.Reset()

	var rest []float32
	if trace != nil {
		rest = trace[offset:]
	}
	if offset > 0 {
		next.last, next.hasLast = samples[offset-1], true
	}
	// a second transition within the same block is not reported
	next.push(samples[offset:], nextCount, rest)
	return offset
}

// Open reports whether the gate is open.
func (g *CrossingTrigger[T]) Open() bool { return g.open.Load() }

// Count returns the running count of the active counter. The value is
// negative while the gate is open and the close side is being tested.
func (g *CrossingTrigger[T]) Count() int {
	if g.open.Load() {
		return -g.closeCounter.Count()
	}
	return g.openCounter.Count()
}

// Reset closes the gate and clears both counters.
func (g *CrossingTrigger[T]) Reset() {
	g.open.Store(false)
	g.openCounter.Reset()
	g.closeCounter.Reset()
}

// OpenThreshold returns the sample threshold of the open side.
func (g *CrossingTrigger[T]) OpenThreshold() T { return g.openCounter.Threshold() }

// CloseThreshold returns the sample threshold of the close side.
func (g *CrossingTrigger[T]) CloseThreshold() T { return g.closeCounter.Threshold() }

func (g *CrossingTrigger[T]) SetOpenThreshold(v T)  { g.openCounter.SetThreshold(v) }
func (g *CrossingTrigger[T]) SetCloseThreshold(v T) { g.closeCounter.SetThreshold(v) }
