// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides deterministic sources and sinks for tests.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates audio from a waveform function.
// It implements the audio.Source interface (without importing it to avoid cycles).
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	waveform     func(sample int, channel int) float32
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 { return 0 })
}

func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		return Sine(sample, sampleRate, frequency, 1)
	})
}

func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 { return value })
}

// Burst is a span of frames [Start, End) carrying a tone.
type Burst struct {
	Start, End int
	Frequency  float64
	Amplitude  float32
}

// NewBurstSource creates a source that is silent except during bursts. All
// channels carry the same signal.
func NewBurstSource(sampleRate, channels, totalSamples int, bursts ...Burst) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		for _, b := range bursts {
			if sample >= b.Start && sample < b.End {
				return Sine(sample, sampleRate, b.Frequency, b.Amplitude)
			}
		}
		return 0
	})
}

// Sine returns sample i of a sine wave.
func Sine(i, sampleRate int, frequency float64, amplitude float32) float32 {
	t := float64(i) / float64(sampleRate)
	return amplitude * float32(math.Sin(2*math.Pi*frequency*t))
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

// Reset rewinds the source.
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.totalSamples-m.generated)
	for frame := range frames {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += frames
	if m.generated >= m.totalSamples {
		return frames * m.channels, io.EOF
	}
	return frames * m.channels, nil
}
