// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/audacq/utils"
)

// BitDepth is the sample width written by Encoder.
const BitDepth = 16

// Encoder streams float32 samples into a 16-bit PCM WAV file. The header
// sizes are fixed up on Close, so w must be seekable.
type Encoder struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int
}

func NewEncoder(w io.WriteSeeker, sampleRate, channels int) *Encoder {
	return &Encoder{
		enc: wav.NewEncoder(w, sampleRate, BitDepth, channels, formatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: BitDepth,
		},
	}
}

// Write appends interleaved samples.
func (e *Encoder) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if cap(e.buf.Data) < len(samples) {
		e.buf.Data = make([]int, len(samples))
	}
	e.buf.Data = e.buf.Data[:len(samples)]
	for i, v := range samples {
		e.buf.Data[i] = int(utils.Float32ToInt16(v))
	}

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	e.frames += len(samples) / e.buf.Format.NumChannels
	return nil
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int { return e.frames }

// Close finalizes the header. It does not close the underlying writer.
func (e *Encoder) Close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}
	return nil
}
