// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/ringbuffer"
)

// deinterleaver splits interleaved F32 frames from the device into
// per-channel buffers, in chunks of at most maxFrames, and keeps the frame
// clock. All buffers are allocated up front.
type deinterleaver struct {
	channels  int
	maxFrames int
	scratch   []float32
	bufs      [][]float32
	views     [][]float32
	time      uint32
}

func newDeinterleaver(channels, maxFrames int) *deinterleaver {
	d := &deinterleaver{
		channels:  channels,
		maxFrames: maxFrames,
		scratch:   make([]float32, channels*maxFrames),
		bufs:      make([][]float32, channels),
		views:     make([][]float32, channels),
	}
	for c := range d.bufs {
		d.bufs[c] = make([]float32, maxFrames)
	}
	return d
}

func (d *deinterleaver) process(raw []byte, frames int, fn audio.ProcessFunc) {
	frameBytes := d.channels * ringbuffer.SampleSize
	frames = min(frames, len(raw)/frameBytes)

	for frames > 0 {
		n := min(frames, d.maxFrames)
		ringbuffer.DecodeSamples(d.scratch[:n*d.channels], raw[:n*frameBytes])
		for c := range d.channels {
			buf := d.bufs[c][:n]
			for i := range buf {
				buf[i] = d.scratch[i*d.channels+c]
			}
			d.views[c] = buf
		}
		fn(d.time, n, d.views)

		d.time += uint32(n)
		raw = raw[n*frameBytes:]
		frames -= n
	}
}
