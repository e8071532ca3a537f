// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audacq/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createWAVFile builds a canonical 44 byte header WAV file.
func createWAVFile(format, sampleRate, channels, bitsPerSample int, data []byte) []byte {
	buf := new(bytes.Buffer)
	blockAlign := channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(format))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func readAll(t *testing.T, src audio.Source) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 3)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
	}
}

func TestDecoder_PCM16(t *testing.T) {
	t.Parallel()

	data := createWAVFile(1, 8000, 2, 16, pcm16(0, 16384, -32768, 8192))
	src, err := Decoder{}.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 8000, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, []float32{0, 0.5, -1, 0.25}, readAll(t, src))
	require.NoError(t, src.Close())
}

func TestDecoder_NotSeekable(t *testing.T) {
	t.Parallel()

	data := createWAVFile(1, 16000, 1, 16, pcm16(100, 200))
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Len(t, readAll(t, src), 2)
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not riff", []byte("NOT A WAV FILE DATA AT ALL, REALLY NOT"), ErrNotWavFile},
		{"truncated", []byte("RIFF\x00"), ErrNotWavFile},
		{"float", createWAVFile(3, 8000, 1, 32, make([]byte, 8)), ErrUnsupportedFormat},
		{"8 bit", createWAVFile(1, 8000, 1, 8, make([]byte, 4)), ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncoder_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := NewEncoder(f, 22050, 1)
	require.NoError(t, enc.Write([]float32{0, 0.5, -0.5}))
	require.NoError(t, enc.Write([]float32{1, -1}))
	assert.Equal(t, 5, enc.Frames())
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	src, err := Decoder{}.Decode(in)
	require.NoError(t, err)
	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	got := readAll(t, src)
	want := []float32{0, 0.5, -0.5, 1, -1}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	reg := audio.NewRegistry()
	Register(reg)

	_, ok := reg.Get("wav")
	assert.True(t, ok)
	_, ok = reg.Get("WAVE")
	assert.True(t, ok)
}
