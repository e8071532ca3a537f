// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunningCounter_Window(t *testing.T) {
	t.Parallel()

	c := NewRunningCounter[int](3)
	assert.False(t, c.Full())

	for _, v := range []int{1, 2, 3} {
		c.Push(v)
	}
	assert.True(t, c.Full())
	assert.Equal(t, 6, c.Sum())

	c.Push(10) // evicts 1
	assert.Equal(t, 15, c.Sum())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "15 [3/3] (2 3 10)", c.String())

	c.Reset()
	assert.Zero(t, c.Sum())
	assert.Zero(t, c.Len())
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, "0 [0/3] ()", c.String())
}

func TestRunningCounter_Float(t *testing.T) {
	t.Parallel()

	c := NewRunningCounter[float64](2)
	c.Push(0.5)
	c.Push(0.25)
	c.Push(1)
	assert.InDelta(t, 1.25, c.Sum(), 1e-12)
}

func TestNewRunningCounter_MinimumSize(t *testing.T) {
	t.Parallel()

	c := NewRunningCounter[int](0)
	assert.Equal(t, 1, c.Size())
}
