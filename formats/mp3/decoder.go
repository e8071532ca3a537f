// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audacq/audio"
)

// go-mp3 always produces interleaved stereo 16-bit little endian PCM.
const (
	channels       = 2
	bytesPerSample = 2
)

// pcmReader is the part of gomp3.Decoder a source needs.
type pcmReader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec  pcmReader
	buf  []byte
	rest int // bytes of a split sample carried to the next read
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

func (s *source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * bytesPerSample
	if cap(s.buf) < need {
		buf := make([]byte, need)
		copy(buf, s.buf[:s.rest])
		s.buf = buf
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf[s.rest:])
	n += s.rest
	samples := n / bytesPerSample
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[bytesPerSample*i:]))
		dst[i] = float32(v) / 32768
	}
	s.rest = copy(s.buf, s.buf[samples*bytesPerSample:n])

	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("mp3 read: %w", err)
	}
	if samples == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3 decoder: %w", err)
	}
	return &source{dec: dec, buf: make([]byte, 8192)}, nil
}

// Register adds the MP3 decoder to reg.
func Register(reg *audio.Registry) {
	reg.Register("mp3", Decoder{})
}
