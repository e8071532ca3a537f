// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"sync/atomic"
)

// Sample is the set of sample types a CrossingCounter accepts.
type Sample interface {
	~int16 | ~int32 | ~float32 | ~float64
}

// CrossingCounter counts rising threshold crossings in analysis periods of
// PeriodSize samples and keeps a running sum over the last periodCount
// periods.
//
// Only positive-going crossings are counted. The last sample of one call is
// remembered, so a crossing between two calls is not lost, and every sample
// counts toward the current period.
type CrossingCounter[T Sample] struct {
	counter    *RunningCounter[int]
	thresh     atomic.Uint64 // float64 bits
	periodSize int
	maxCount   float32

	crossings int
	nsamples  int
	last      T
	hasLast   bool
}

// NewCrossingCounter creates a counter. periodSize and periodCount are
// clamped to at least 1.
func NewCrossingCounter[T Sample](threshold T, periodSize, periodCount int) *CrossingCounter[T] {
	periodSize = max(periodSize, 1)
	periodCount = max(periodCount, 1)
	c := &CrossingCounter[T]{
		counter:    NewRunningCounter[int](periodCount),
		periodSize: periodSize,
		maxCount:   float32(max(periodCount*periodSize/2, 1)),
	}
	c.SetThreshold(threshold)
	return c
}

// Push analyzes samples and returns the index of the first period completed
// during this call in which the running count satisfied countThresh, or -1.
//
// A positive countThresh fires when the sum over a full window exceeds it; a
// negative one fires when the sum drops below its absolute value. Zero never
// fires.
func (c *CrossingCounter[T]) Push(samples []T, countThresh int) int {
	return c.push(samples, countThresh, nil)
}

// PushTrace is Push that also stores, for every sample, the running count
// normalized by the largest possible count. trace must be at least as long
// as samples.
func (c *CrossingCounter[T]) PushTrace(samples []T, countThresh int, trace []float32) int {
	return c.push(samples, countThresh, trace[:len(samples)])
}

func (c *CrossingCounter[T]) push(samples []T, countThresh int, trace []float32) int {
	ret, period := -1, 0
	thresh := c.Threshold()

	for i, s := range samples {
		if c.hasLast && c.last < thresh && s >= thresh {
			c.crossings++
		}
		c.last, c.hasLast = s, true

		c.nsamples++
		if c.nsamples >= c.periodSize {
			c.counter.Push(c.crossings)
			if ret < 0 && c.counter.Full() && c.fires(countThresh) {
				ret = period
			}
			period++
			c.nsamples, c.crossings = 0, 0
		}

		if trace != nil {
			trace[i] = float32(c.counter.Sum()) / c.maxCount
		}
	}

	return ret
}

func (c *CrossingCounter[T]) fires(countThresh int) bool {
	sum := c.counter.Sum()
	switch {
	case countThresh > 0:
		return sum > countThresh
	case countThresh < 0:
		return sum < -countThresh
	default:
		return false
	}
}

// Count returns the running crossing count.
func (c *CrossingCounter[T]) Count() int { return c.counter.Sum() }

// Reset clears the window and the partial period. The last sample is kept
// so that a crossing at the start of the next call is still detected.
func (c *CrossingCounter[T]) Reset() {
	c.counter.Reset()
	c.crossings, c.nsamples = 0, 0
}

// PeriodSize returns the analysis period in samples.
func (c *CrossingCounter[T]) PeriodSize() int { return c.periodSize }

// Threshold returns the sample threshold.
func (c *CrossingCounter[T]) Threshold() T {
	return T(math.Float64frombits(c.thresh.Load()))
}

// SetThreshold changes the sample threshold. Safe to call while another
// goroutine is pushing.
func (c *CrossingCounter[T]) SetThreshold(v T) {
	c.thresh.Store(math.Float64bits(float64(v)))
}
