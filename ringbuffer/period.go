// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"encoding/binary"
	"fmt"
)

// PeriodHeaderSize is the size of the header that precedes every period:
//
//	[time u32][nframes u32][nchannels u32]
const PeriodHeaderSize = 12

// PeriodInfo describes one period.
type PeriodInfo struct {
	Time      uint32
	NFrames   int
	NChannels int
}

// ChannelBytes returns the size of one channel's samples.
func (p PeriodInfo) ChannelBytes() int { return p.NFrames * SampleSize }

// Size returns the number of ring bytes the whole period occupies.
func (p PeriodInfo) Size() int { return PeriodHeaderSize + p.NChannels*p.ChannelBytes() }

// PeriodRingBuffer stores multichannel periods. The producer reserves a
// period and then pushes it one channel at a time; the period becomes
// readable only after the last channel is pushed. The consumer mirrors this
// with Request and Pop.
//
// Calling Push without an open reservation, Reserve while a period is
// incomplete, or Pop without a request is a programming error and panics.
type PeriodRingBuffer struct {
	rb *RingBuffer

	write      PeriodInfo
	writeOff   int
	chansWrite int

	read      PeriodInfo
	readOff   int
	chansRead int
}

// NewPeriod creates a period buffer that holds at least nsamples samples.
// A reasonable minimum is nframes*nchannels*3.
func NewPeriod(nsamples int) *PeriodRingBuffer {
	return &PeriodRingBuffer{rb: New(nsamples * SampleSize)}
}

func (b *PeriodRingBuffer) Size() int       { return b.rb.Size() }
func (b *PeriodRingBuffer) ReadSpace() int  { return b.rb.ReadSpace() }
func (b *PeriodRingBuffer) WriteSpace() int { return b.rb.WriteSpace() }

// ChansToWrite returns the channels still to be pushed for the reserved
// period, or 0 when none is reserved.
func (b *PeriodRingBuffer) ChansToWrite() int { return b.chansWrite }

// ChansToRead returns the channels still to be popped for the requested
// period, or 0 when none is requested.
func (b *PeriodRingBuffer) ChansToRead() int { return b.chansRead }

// Reserve writes the header for a new period. It returns how many periods
// of this shape fit in the free space, or 0 (nothing written) if not even
// one does. Producer only.
func (b *PeriodRingBuffer) Reserve(time uint32, nframes, nchannels int) int {
	if b.chansWrite != 0 {
		panic(fmt.Sprintf("ringbuffer: reserve with %d channels of the previous period unwritten", b.chansWrite))
	}
	if nframes <= 0 || nchannels <= 0 {
		panic(fmt.Sprintf("ringbuffer: invalid period shape %dx%d", nframes, nchannels))
	}

	info := PeriodInfo{Time: time, NFrames: nframes, NChannels: nchannels}
	region := b.rb.WriteRegion()
	size := info.Size()
	if size > len(region) {
		return 0
	}

	binary.LittleEndian.PutUint32(region[0:4], time)
	binary.LittleEndian.PutUint32(region[4:8], uint32(nframes))
	binary.LittleEndian.PutUint32(region[8:12], uint32(nchannels))

	b.write = info
	b.writeOff = PeriodHeaderSize
	b.chansWrite = nchannels
	return len(region) / size
}

// Push writes the next channel of the reserved period. samples must hold
// at least NFrames values. After the last channel the period is committed.
// Producer only.
func (b *PeriodRingBuffer) Push(samples []float32) {
	if b.chansWrite == 0 {
		panic("ringbuffer: period push without reserve")
	}
	if len(samples) < b.write.NFrames {
		panic(fmt.Sprintf("ringbuffer: period push of %d samples, need %d", len(samples), b.write.NFrames))
	}

	region := b.rb.WriteRegion()
	end := b.writeOff + b.write.ChannelBytes()
	EncodeSamples(region[b.writeOff:end], samples[:b.write.NFrames])
	b.writeOff = end

	b.chansWrite--
	if b.chansWrite == 0 {
		b.rb.Commit(b.write.Size())
	}
}

// Request returns the header of the next readable period and prepares it
// for popping. It returns false if no period is available. Consumer only.
func (b *PeriodRingBuffer) Request() (PeriodInfo, bool) {
	if b.chansRead != 0 {
		panic(fmt.Sprintf("ringbuffer: request with %d channels of the previous period unread", b.chansRead))
	}

	view := b.rb.Peek()
	if len(view) == 0 {
		return PeriodInfo{}, false
	}
	if len(view) < PeriodHeaderSize {
		panic(fmt.Sprintf("ringbuffer: truncated period header (%d bytes)", len(view)))
	}

	info := PeriodInfo{
		Time:      binary.LittleEndian.Uint32(view[0:4]),
		NFrames:   int(binary.LittleEndian.Uint32(view[4:8])),
		NChannels: int(binary.LittleEndian.Uint32(view[8:12])),
	}
	if info.Size() > len(view) {
		panic(fmt.Sprintf("ringbuffer: corrupt period header (size %d, %d readable)", info.Size(), len(view)))
	}

	b.read = info
	b.readOff = PeriodHeaderSize
	b.chansRead = info.NChannels
	return info, true
}

// Pop copies the next channel of the requested period into dst, which must
// hold at least NFrames values. After the last channel the period is
// released. Consumer only.
func (b *PeriodRingBuffer) Pop(dst []float32) {
	if b.chansRead == 0 {
		panic("ringbuffer: period pop without request")
	}
	if len(dst) < b.read.NFrames {
		panic(fmt.Sprintf("ringbuffer: period pop into %d samples, need %d", len(dst), b.read.NFrames))
	}

	view := b.rb.Peek()
	end := b.readOff + b.read.ChannelBytes()
	DecodeSamples(dst[:b.read.NFrames], view[b.readOff:end])
	b.readOff = end

	b.chansRead--
	if b.chansRead == 0 {
		b.rb.Advance(b.read.Size())
	}
}

// PopAll copies every remaining channel of the requested period into dst,
// channel after channel, and releases the period. It returns the number of
// samples copied.
func (b *PeriodRingBuffer) PopAll(dst []float32) int {
	if b.chansRead == 0 {
		panic("ringbuffer: period pop without request")
	}
	need := b.chansRead * b.read.NFrames
	if len(dst) < need {
		panic(fmt.Sprintf("ringbuffer: period pop into %d samples, need %d", len(dst), need))
	}

	n := 0
	for b.chansRead > 0 {
		b.Pop(dst[n:])
		n += b.read.NFrames
	}
	return n
}

// Close releases the backing memory.
func (b *PeriodRingBuffer) Close() error { return b.rb.Close() }
