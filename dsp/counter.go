// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"fmt"
	"strings"
)

// Number is the set of types a RunningCounter can sum.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// RunningCounter keeps the sum of the last Size values pushed.
type RunningCounter[T Number] struct {
	values []T
	head   int
	n      int
	sum    T
}

// NewRunningCounter returns a counter over a window of size values.
func NewRunningCounter[T Number](size int) *RunningCounter[T] {
	if size < 1 {
		size = 1
	}
	return &RunningCounter[T]{values: make([]T, size)}
}

// Push adds v to the sum. When the window is full the oldest value is
// evicted first.
func (c *RunningCounter[T]) Push(v T) {
	if c.n == len(c.values) {
		c.sum -= c.values[c.head]
	} else {
		c.n++
	}
	c.values[c.head] = v
	c.head = (c.head + 1) % len(c.values)
	c.sum += v
}

// Full reports whether the window holds Size values.
func (c *RunningCounter[T]) Full() bool { return c.n == len(c.values) }

// Sum returns the running total.
func (c *RunningCounter[T]) Sum() T { return c.sum }

// Len returns the number of values currently in the window.
func (c *RunningCounter[T]) Len() int { return c.n }

// Size returns the window size.
func (c *RunningCounter[T]) Size() int { return len(c.values) }

// Reset empties the window.
func (c *RunningCounter[T]) Reset() {
	c.head, c.n = 0, 0
	c.sum = 0
}

func (c *RunningCounter[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v [%d/%d] (", c.sum, c.n, len(c.values))
	start := (c.head - c.n + len(c.values)) % len(c.values)
	for i := range c.n {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, c.values[(start+i)%len(c.values)])
	}
	b.WriteByte(')')
	return b.String()
}
