// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"bytes"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoundsToPowerOfTwo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int
		want int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{4096, 4096},
		{4097, 8192},
	}

	for _, tt := range tests {
		rb := New(tt.size)
		assert.Equal(t, tt.want, rb.Size(), "New(%d)", tt.size)
		assert.Equal(t, tt.want-1, rb.WriteSpace(), "New(%d)", tt.size)
		assert.Zero(t, rb.ReadSpace())
		require.NoError(t, rb.Close())
	}
}

func TestRingBuffer_PushPopOrder(t *testing.T) {
	t.Parallel()

	for _, size := range []int{64, 4096, 1 << 16} {
		rb := New(size)
		rng := rand.New(rand.NewPCG(1, uint64(size)))

		var written, read bytes.Buffer
		var next byte
		for range 500 {
			n := rng.IntN(rb.Size())
			src := make([]byte, n)
			for i := range src {
				src[i] = next
				next++
			}
			pushed := rb.Push(src)
			written.Write(src[:pushed])

			dst := make([]byte, rng.IntN(rb.Size()))
			popped := rb.Pop(dst)
			read.Write(dst[:popped])

			require.Equal(t, rb.Size()-1, rb.ReadSpace()+rb.WriteSpace())
		}

		dst := make([]byte, rb.Size())
		read.Write(dst[:rb.Pop(dst)])

		assert.Equal(t, written.Bytes(), read.Bytes(), "size %d", size)
		assert.Zero(t, rb.ReadSpace())
		assert.Equal(t, rb.Size()-1, rb.WriteSpace())
		require.NoError(t, rb.Close())
	}
}

func TestRingBuffer_PushWhenFull(t *testing.T) {
	t.Parallel()

	rb := New(16)
	defer rb.Close()

	assert.Equal(t, 15, rb.Push(make([]byte, 20)))
	assert.Zero(t, rb.Push([]byte{1}))
	assert.Zero(t, rb.WriteSpace())
}

func TestRingBuffer_PeekIsContiguousAcrossWrap(t *testing.T) {
	t.Parallel()

	rb := New(8)
	defer rb.Close()

	rb.Push([]byte{0, 0, 0, 0, 0, 0})
	rb.Advance(6)

	// write pointer at offset 6: the next 5 bytes wrap around the end
	require.Equal(t, 5, rb.Push([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, rb.Peek())
	assert.Len(t, rb.WriteRegion(), 2)
}

func TestRingBuffer_WriteRegionCommit(t *testing.T) {
	t.Parallel()

	rb := New(32)
	defer rb.Close()

	region := rb.WriteRegion()
	require.Len(t, region, 31)
	copy(region, "hello")
	assert.Zero(t, rb.ReadSpace(), "uncommitted data must not be visible")

	rb.Commit(5)
	assert.Equal(t, []byte("hello"), rb.Peek())

	assert.Panics(t, func() { rb.Commit(100) })
}

func TestRingBuffer_PopNilDiscards(t *testing.T) {
	t.Parallel()

	rb := New(32)
	defer rb.Close()

	rb.Push([]byte("abcdef"))
	assert.Equal(t, 6, rb.Pop(nil))
	assert.Zero(t, rb.ReadSpace())
	assert.Zero(t, rb.Advance(3))
}

func TestRingBuffer_Resize(t *testing.T) {
	t.Parallel()

	rb := New(16)
	defer rb.Close()

	rb.Push([]byte("0123456789"))
	rb.Advance(8)
	rb.Push([]byte("abcdef"))

	require.NoError(t, rb.Resize(64))
	assert.Equal(t, 64, rb.Size())
	assert.Equal(t, []byte("89abcdef"), rb.Peek())

	err := rb.Resize(4)
	require.ErrorIs(t, err, ErrTooSmall)
	assert.Equal(t, []byte("89abcdef"), rb.Peek())
}

func TestRingBuffer_ConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 1 << 20

	rb := New(4096)
	defer rb.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var next byte
		buf := make([]byte, 97)
		sent := 0
		for sent < total {
			n := min(len(buf), total-sent)
			for i := range n {
				buf[i] = next + byte(i)
			}
			w := rb.Push(buf[:n])
			next += byte(w)
			sent += w
		}
	}()

	var want byte
	got := 0
	for got < total {
		view := rb.Peek()
		for _, b := range view {
			if b != want {
				t.Fatalf("byte %d = %d, want %d", got, b, want)
			}
			want++
			got++
		}
		rb.Advance(len(view))
	}
	wg.Wait()

	assert.Zero(t, rb.ReadSpace())
}

func TestMirror_SyncAcrossHalves(t *testing.T) {
	t.Parallel()

	m := &mirror{data: make([]byte, 16), size: 8}
	copy(m.data[6:11], []byte{1, 2, 3, 4, 5})
	m.sync(6, 5)

	assert.Equal(t, []byte{1, 2}, m.data[14:16])
	assert.Equal(t, []byte{3, 4, 5}, m.data[0:3])
	assert.Equal(t, m.data[0:8], m.data[8:16])
}
