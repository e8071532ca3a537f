// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"encoding/binary"
	"fmt"
)

// DataType tags the payload of a Block.
type DataType uint8

const (
	Sampled DataType = iota
	Event
	Video
)

func (t DataType) String() string {
	switch t {
	case Sampled:
		return "sampled"
	case Event:
		return "event"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(t))
	}
}

// HeaderSize is the size of the fixed block header:
//
//	[time u32][dtype u8][pad 3][id_len u32][data_len u32]
const HeaderSize = 16

// Block is a view of one record in a BlockRingBuffer. ID and Data alias ring
// memory and are only valid until the block is released.
type Block struct {
	Time uint32
	Type DataType
	ID   []byte
	Data []byte
	size int
}

// Size returns the number of ring bytes the block occupies.
func (b Block) Size() int { return b.size }

// Frames returns the number of samples in a sampled block. Other blocks
// occupy a single frame.
func (b Block) Frames() int {
	if b.Type != Sampled {
		return 1
	}
	return len(b.Data) / SampleSize
}

// End returns the frame just past the block.
func (b Block) End() uint32 { return b.Time + uint32(b.Frames()) }

// Channel returns a copy of the block id.
func (b Block) Channel() string { return string(b.ID) }

// Samples decodes the payload of a sampled block into dst.
func (b Block) Samples(dst []float32) int { return DecodeSamples(dst, b.Data) }

func putHeader(dst []byte, time uint32, dtype DataType, idLen, dataLen int) {
	binary.LittleEndian.PutUint32(dst[0:4], time)
	dst[4] = byte(dtype)
	dst[5], dst[6], dst[7] = 0, 0, 0
	binary.LittleEndian.PutUint32(dst[8:12], uint32(idLen))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(dataLen))
}

func decodeBlock(buf []byte) Block {
	if len(buf) < HeaderSize {
		panic(fmt.Sprintf("ringbuffer: truncated block header (%d bytes)", len(buf)))
	}
	idLen := int(binary.LittleEndian.Uint32(buf[8:12]))
	dataLen := int(binary.LittleEndian.Uint32(buf[12:16]))
	total := HeaderSize + idLen + dataLen
	if idLen < 0 || dataLen < 0 || total > len(buf) {
		panic(fmt.Sprintf("ringbuffer: corrupt block header (size %d, %d readable)", total, len(buf)))
	}
	idEnd := HeaderSize + idLen
	return Block{
		Time: binary.LittleEndian.Uint32(buf[0:4]),
		Type: DataType(buf[4]),
		ID:   buf[HeaderSize:idEnd:idEnd],
		Data: buf[idEnd:total:total],
		size: total,
	}
}

// BlockRingBuffer stores Blocks in a RingBuffer. Besides FIFO access to the
// oldest block (Peek/Release) it keeps a read-ahead cursor (PeekAhead) that
// walks over newer blocks without releasing them, so older data can be held
// as a prebuffer while new data is inspected.
type BlockRingBuffer struct {
	rb        *RingBuffer
	readAhead int
}

// NewBlock creates a block buffer of at least size bytes. There is no fixed
// relation between buffer size and block size; a reasonable minimum is
// nframes*nchannels*12 bytes.
func NewBlock(size int) *BlockRingBuffer {
	return &BlockRingBuffer{rb: New(size)}
}

func (b *BlockRingBuffer) Size() int       { return b.rb.Size() }
func (b *BlockRingBuffer) ReadSpace() int  { return b.rb.ReadSpace() }
func (b *BlockRingBuffer) WriteSpace() int { return b.rb.WriteSpace() }

// Ahead returns how many bytes the read-ahead cursor is past the tail.
func (b *BlockRingBuffer) Ahead() int { return b.readAhead }

// Empty reports whether there is no unreleased data.
func (b *BlockRingBuffer) Empty() bool { return b.rb.ReadSpace() == 0 }

// EmptyAhead reports whether the read-ahead cursor has reached the head.
func (b *BlockRingBuffer) EmptyAhead() bool { return b.rb.ReadSpace() == b.readAhead }

// Push stores one block. It returns the number of bytes written, or 0 if the
// whole block does not fit, in which case nothing is written. Producer only.
func (b *BlockRingBuffer) Push(time uint32, dtype DataType, id string, data []byte) int {
	total := HeaderSize + len(id) + len(data)
	region := b.rb.WriteRegion()
	if total > len(region) {
		return 0
	}
	putHeader(region, time, dtype, len(id), len(data))
	copy(region[HeaderSize:], id)
	copy(region[HeaderSize+len(id):], data)
	b.rb.Commit(total)
	return total
}

// PushSamples stores a sampled block, encoding samples directly into ring
// memory. Same contract as Push.
func (b *BlockRingBuffer) PushSamples(time uint32, id string, samples []float32) int {
	dataLen := len(samples) * SampleSize
	total := HeaderSize + len(id) + dataLen
	region := b.rb.WriteRegion()
	if total > len(region) {
		return 0
	}
	putHeader(region, time, Sampled, len(id), dataLen)
	copy(region[HeaderSize:], id)
	EncodeSamples(region[HeaderSize+len(id):total], samples)
	b.rb.Commit(total)
	return total
}

// PeekAhead returns the next block past the read-ahead cursor and moves the
// cursor over it. Successive calls return successive blocks.
func (b *BlockRingBuffer) PeekAhead() (Block, bool) {
	view := b.rb.Peek()
	if len(view) <= b.readAhead {
		return Block{}, false
	}
	blk := decodeBlock(view[b.readAhead:])
	b.readAhead += blk.size
	return blk, true
}

// Peek returns the oldest unreleased block. Successive calls return the
// same block until it is released.
func (b *BlockRingBuffer) Peek() (Block, bool) {
	view := b.rb.Peek()
	if len(view) == 0 {
		return Block{}, false
	}
	return decodeBlock(view), true
}

// Release drops the oldest block, returning its memory to the producer.
func (b *BlockRingBuffer) Release() {
	blk, ok := b.Peek()
	if !ok {
		return
	}
	if b.readAhead > 0 {
		b.readAhead -= blk.size
	}
	b.rb.Advance(blk.size)
}

// ReleaseAll drops every readable block and resets the read-ahead cursor.
func (b *BlockRingBuffer) ReleaseAll() {
	b.rb.Pop(nil)
	b.readAhead = 0
}

// Resize grows the buffer, keeping unreleased blocks. The read-ahead cursor
// is preserved. Neither producer nor consumer may be active.
func (b *BlockRingBuffer) Resize(size int) error {
	return b.rb.Resize(size)
}

// Close releases the backing memory.
func (b *BlockRingBuffer) Close() error { return b.rb.Close() }
