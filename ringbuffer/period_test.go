// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRingBuffer_VisibleAfterLastChannel(t *testing.T) {
	t.Parallel()

	buf := NewPeriod(1024)
	defer buf.Close()

	require.NotZero(t, buf.Reserve(100, 16, 3))
	assert.Equal(t, 3, buf.ChansToWrite())

	buf.Push(ramp(0, 16))
	buf.Push(ramp(100, 16))
	_, ok := buf.Request()
	assert.False(t, ok, "partial period must not be readable")

	buf.Push(ramp(200, 16))
	assert.Zero(t, buf.ChansToWrite())

	info, ok := buf.Request()
	require.True(t, ok)
	assert.Equal(t, PeriodInfo{Time: 100, NFrames: 16, NChannels: 3}, info)
	assert.Equal(t, 3, buf.ChansToRead())

	dst := make([]float32, 16)
	for ch := range 3 {
		buf.Pop(dst)
		assert.Equal(t, ramp(float32(ch*100), 16), dst)
	}
	assert.Zero(t, buf.ChansToRead())
	assert.Zero(t, buf.ReadSpace())
}

func TestPeriodRingBuffer_PopAll(t *testing.T) {
	t.Parallel()

	buf := NewPeriod(256)
	defer buf.Close()

	buf.Reserve(0, 4, 2)
	buf.Push([]float32{1, 2, 3, 4})
	buf.Push([]float32{5, 6, 7, 8})

	_, ok := buf.Request()
	require.True(t, ok)

	dst := make([]float32, 8)
	assert.Equal(t, 8, buf.PopAll(dst))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, dst)
}

func TestPeriodRingBuffer_ReserveWhenFull(t *testing.T) {
	t.Parallel()

	buf := NewPeriod(64) // 256 bytes
	defer buf.Close()

	info := PeriodInfo{NFrames: 16, NChannels: 2}
	fits := buf.Reserve(0, 16, 2)
	assert.Equal(t, (buf.Size()-1)/info.Size(), fits)
	buf.Push(ramp(0, 16))
	buf.Push(ramp(0, 16))

	free := buf.WriteSpace()
	for buf.WriteSpace() >= info.Size() {
		buf.Reserve(0, 16, 2)
		buf.Push(ramp(0, 16))
		buf.Push(ramp(0, 16))
		free = buf.WriteSpace()
	}

	assert.Zero(t, buf.Reserve(1, 16, 2))
	assert.Zero(t, buf.ChansToWrite())
	assert.Equal(t, free, buf.WriteSpace())
}

func TestPeriodRingBuffer_ContractViolations(t *testing.T) {
	t.Parallel()

	t.Run("push without reserve", func(t *testing.T) {
		buf := NewPeriod(256)
		assert.Panics(t, func() { buf.Push(make([]float32, 4)) })
	})

	t.Run("reserve before finish", func(t *testing.T) {
		buf := NewPeriod(256)
		buf.Reserve(0, 4, 2)
		buf.Push(make([]float32, 4))
		assert.Panics(t, func() { buf.Reserve(4, 4, 2) })
	})

	t.Run("pop without request", func(t *testing.T) {
		buf := NewPeriod(256)
		assert.Panics(t, func() { buf.Pop(make([]float32, 4)) })
	})

	t.Run("request before finish", func(t *testing.T) {
		buf := NewPeriod(256)
		buf.Reserve(0, 4, 2)
		buf.Push(make([]float32, 4))
		buf.Push(make([]float32, 4))
		buf.Request()
		buf.Pop(make([]float32, 4))
		assert.Panics(t, func() { buf.Request() })
	})

	t.Run("short channel", func(t *testing.T) {
		buf := NewPeriod(256)
		buf.Reserve(0, 4, 1)
		assert.Panics(t, func() { buf.Push(make([]float32, 3)) })
	})
}
