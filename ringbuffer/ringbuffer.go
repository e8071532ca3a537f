// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// RingBuffer is a lock-free byte ring for one producer and one consumer.
//
// Capacity is a power of two so offsets are computed with a mask. One byte
// is kept free to distinguish full from empty, so
// ReadSpace()+WriteSpace() == Size()-1 at all times.
type RingBuffer struct {
	writePtr atomic.Uint64
	_        [56]byte
	readPtr  atomic.Uint64
	_        [56]byte

	mem  *mirror
	size uint64
	mask uint64
}

// New creates a ring buffer holding at least size bytes. The capacity is
// rounded up to the next power of two.
func New(size int) *RingBuffer {
	rb := &RingBuffer{}
	rb.alloc(nextPow2(size))
	return rb
}

func nextPow2(n int) int {
	if n <= 2 {
		return 2
	}
	return 1 << bits.Len(uint(n-1))
}

func (rb *RingBuffer) alloc(size int) {
	rb.mem = newMirror(size)
	rb.size = uint64(size)
	rb.mask = uint64(size - 1)
}

// Size returns the capacity in bytes.
func (rb *RingBuffer) Size() int { return int(rb.size) }

// ReadSpace returns the number of bytes available to the consumer.
func (rb *RingBuffer) ReadSpace() int {
	return int(rb.writePtr.Load() - rb.readPtr.Load())
}

// WriteSpace returns the number of bytes available to the producer.
func (rb *RingBuffer) WriteSpace() int {
	return int(rb.size - 1 - (rb.writePtr.Load() - rb.readPtr.Load()))
}

// WriteRegion returns the free space as one contiguous slice. Bytes written
// into it become visible to the consumer only after Commit. Producer only.
func (rb *RingBuffer) WriteRegion() []byte {
	w := rb.writePtr.Load()
	space := rb.size - 1 - (w - rb.readPtr.Load())
	off := w & rb.mask
	return rb.mem.data[off : off+space : off+space]
}

// Commit publishes n bytes previously written into WriteRegion. Producer only.
func (rb *RingBuffer) Commit(n int) {
	if n <= 0 {
		return
	}
	w := rb.writePtr.Load()
	if uint64(n) > rb.size-1-(w-rb.readPtr.Load()) {
		panic(fmt.Sprintf("ringbuffer: commit of %d bytes exceeds write space", n))
	}
	rb.mem.sync(int(w&rb.mask), n)
	rb.writePtr.Store(w + uint64(n))
}

// Push copies as much of src as fits and returns the number of bytes
// written. It never blocks; 0 means the buffer is full. Producer only.
func (rb *RingBuffer) Push(src []byte) int {
	n := copy(rb.WriteRegion(), src)
	rb.Commit(n)
	return n
}

// Peek returns all readable data as one contiguous slice without copying.
// The slice stays valid until the consumer advances past it. Consumer only.
func (rb *RingBuffer) Peek() []byte {
	r := rb.readPtr.Load()
	n := rb.writePtr.Load() - r
	off := r & rb.mask
	return rb.mem.data[off : off+n : off+n]
}

// Pop copies up to len(dst) readable bytes into dst and releases them. A nil
// dst releases everything that is readable. Consumer only.
func (rb *RingBuffer) Pop(dst []byte) int {
	view := rb.Peek()
	n := len(view)
	if dst != nil {
		n = copy(dst, view)
	}
	return rb.Advance(n)
}

// Advance releases up to n already consumed bytes and returns the number
// released. Consumer only.
func (rb *RingBuffer) Advance(n int) int {
	if n <= 0 {
		return 0
	}
	r := rb.readPtr.Load()
	avail := rb.writePtr.Load() - r
	if uint64(n) > avail {
		n = int(avail)
	}
	rb.readPtr.Store(r + uint64(n))
	return n
}

// Resize replaces the backing store with one of at least size bytes and
// moves any unread data to the front of it.
//
// The caller must guarantee that neither the producer nor the consumer is
// active during the call.
func (rb *RingBuffer) Resize(size int) error {
	newSize := nextPow2(size)
	pending := rb.Peek()
	if len(pending) > newSize-1 {
		return fmt.Errorf("%w: %d bytes pending, capacity %d", ErrTooSmall, len(pending), newSize)
	}

	mem := newMirror(newSize)
	n := copy(mem.data, pending)
	mem.sync(0, n)

	old := rb.mem
	rb.mem = mem
	rb.size = uint64(newSize)
	rb.mask = uint64(newSize - 1)
	rb.readPtr.Store(0)
	rb.writePtr.Store(uint64(n))

	return old.release()
}

// Close releases the backing memory. The buffer must not be used afterwards.
func (rb *RingBuffer) Close() error {
	if rb.mem == nil {
		return nil
	}
	err := rb.mem.release()
	rb.mem = nil
	return err
}

// Mirrored reports whether the backing store is mirrored by the MMU rather
// than by replicated writes.
func (rb *RingBuffer) Mirrored() bool { return rb.mem.mapped }
