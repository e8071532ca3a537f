// SPDX-License-Identifier: EPL-2.0

// Package ringbuffer provides lock-free single-producer/single-consumer
// buffers for moving audio and event data out of a real-time callback.
//
// Three layers are available:
//   - RingBuffer is a byte-addressable circular buffer over mirrored memory
//   - BlockRingBuffer stores variable-length tagged records (Block)
//   - PeriodRingBuffer stores fixed-schema multichannel periods
//
// # Threading
//
// Exactly one goroutine may act as the producer and exactly one as the
// consumer of a given buffer. The producer only advances the write pointer
// and the consumer only advances the read pointer, so no lock is taken for
// the bulk copy. Producer-side calls never block and never allocate.
//
// # Mirrored Memory
//
// The backing store is twice the capacity. Bytes at offset i and i+Size()
// alias each other, either through two virtual mappings of the same memory
// (Linux) or by replicating every committed write into the other half. Any
// readable or writable run is therefore a single contiguous slice:
//
//	rb := ringbuffer.New(4096)
//	region := rb.WriteRegion() // contiguous free space
//	n := copy(region, payload)
//	rb.Commit(n)
//
//	view := rb.Peek() // contiguous readable data, no copy
//	consume(view)
//	rb.Advance(len(view))
//
// # Blocks
//
// A Block is a view into ring memory and is only valid until it is released:
//
//	buf := ringbuffer.NewBlock(1 << 16)
//	buf.PushSamples(0, "ch0", samples)
//	for blk, ok := buf.PeekAhead(); ok; blk, ok = buf.PeekAhead() {
//	    fmt.Println(blk.Time, blk.Channel(), blk.Frames())
//	}
//	buf.ReleaseAll()
//
// Pushes are all-or-nothing: when a record does not fit, nothing is written
// and 0 is returned so the caller can count an overrun.
package ringbuffer
