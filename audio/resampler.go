// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audacq/utils"
)

const maxEmptyReads = 100

// Resampler streams from src to a target sample rate using cubic
// interpolation. Works on interleaved samples; preserves channel count.
// When downsampling the input passes through a one-pole low-pass filter.
type Resampler struct {
	src      Source
	rate     int
	step     float64 // source frames per output frame
	channels int

	// four frames of history, oldest first: x[-1], x[0], x[1], x[2]
	hist []float32
	frac float64
	// padding frames shifted in after the end of the source
	pad    int
	primed bool

	in           []float32
	inPos, inLen int
	srcDone      bool
	err          error

	filter []float32
	alpha  float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	step := float64(src.SampleRate()) / float64(dstRate)

	bufSize := src.BufSize()
	if bufSize < channels {
		bufSize = 4096
	}
	bufSize -= bufSize % channels

	r := &Resampler{
		src:      src,
		rate:     dstRate,
		step:     step,
		channels: channels,
		hist:     make([]float32, 4*channels),
		in:       make([]float32, bufSize),
	}
	if step > 1 {
		r.filter = make([]float32, channels)
		r.alpha = 0.5
	}
	return r
}

func (r *Resampler) SampleRate() int { return r.rate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}
	return nil
}

// nextFrame copies the next source frame into dst. It returns false once
// the source is exhausted.
func (r *Resampler) nextFrame(dst []float32) bool {
	for empty := 0; r.inPos >= r.inLen; empty++ {
		if r.srcDone {
			return false
		}
		if empty == maxEmptyReads {
			r.srcDone = true
			r.err = fmt.Errorf("resampler source: %w", io.ErrNoProgress)
			return false
		}
		n, err := r.src.ReadSamples(r.in)
		r.inPos, r.inLen = 0, n-n%r.channels
		if err == io.EOF {
			r.srcDone = true
		} else if err != nil {
			r.srcDone = true
			r.err = fmt.Errorf("resampler source: %w", err)
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.filter != nil {
		for c := range dst {
			dst[c] = r.alpha*dst[c] + (1-r.alpha)*r.filter[c]
			r.filter[c] = dst[c]
		}
	}
	return true
}

// shift drops the oldest frame and appends the next one, repeating the last
// frame after the end of the source.
func (r *Resampler) shift() {
	ch := r.channels
	copy(r.hist, r.hist[ch:])
	last := r.hist[3*ch:]
	if !r.nextFrame(last) {
		copy(last, r.hist[2*ch:3*ch])
		r.pad++
	}
}

func (r *Resampler) prime() {
	ch := r.channels
	r.primed = true

	first := r.hist[ch : 2*ch]
	if !r.nextFrame(first) {
		r.pad = 3
		return
	}
	if r.filter != nil {
		// start the filter settled on the first frame
		copy(r.filter, first)
	}
	copy(r.hist[:ch], first)
	for i := 2; i < 4; i++ {
		frame := r.hist[i*ch : (i+1)*ch]
		if !r.nextFrame(frame) {
			copy(frame, r.hist[(i-1)*ch:i*ch])
			r.pad++
		}
	}
}

// ReadSamples produces samples at the target rate. len(dst) must be a
// multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		r.prime()
	}

	ch := r.channels
	frames := len(dst) / ch
	written := 0
	for written < frames && r.pad < 3 {
		x := float32(r.frac)
		out := dst[written*ch : (written+1)*ch]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.hist[c], r.hist[ch+c], r.hist[2*ch+c], r.hist[3*ch+c], x)
		}
		written++

		r.frac += r.step
		for r.frac >= 1 && r.pad < 3 {
			r.frac--
			r.shift()
		}
	}

	if written == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.pad >= 3 {
			return 0, io.EOF
		}
	}
	return written * ch, nil
}
