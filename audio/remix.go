// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Remixer changes the channel count of a source. Mixing down to one
// channel averages all source channels; any other count takes output
// channel c from source channel c modulo the source channel count.
type Remixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewRemixer(src Source, channels int) *Remixer {
	return &Remixer{
		src:      src,
		channels: max(channels, 1),
		tmp:      make([]float32, 4096),
	}
}

func (m *Remixer) SampleRate() int { return m.src.SampleRate() }
func (m *Remixer) Channels() int   { return m.channels }
func (m *Remixer) BufSize() int    { return m.src.BufSize() }

func (m *Remixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("closing remixer source: %w", err)
	}
	return nil
}

func (m *Remixer) ReadSamples(dst []float32) (int, error) {
	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadSamples(dst)
	}
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst) / m.channels
	if frames == 0 {
		return 0, nil
	}
	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	got := n / in
	for f := range got {
		frame := m.tmp[f*in : (f+1)*in]
		out := dst[f*m.channels : (f+1)*m.channels]
		if m.channels == 1 {
			var sum float32
			for _, v := range frame {
				sum += v
			}
			out[0] = sum / float32(in)
			continue
		}
		for c := range out {
			out[c] = frame[c%in]
		}
	}
	return got * m.channels, err
}
