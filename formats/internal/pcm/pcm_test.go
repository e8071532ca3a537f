// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"io"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	data []int
	err  error
}

func (r *sliceReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := copy(buf.Data, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := NewSource(&sliceReader{data: []int{0, 16384, -32768, 8192, 1}}, 8000, 1, 16)
	assert.Equal(t, 8000, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	dst := make([]float32, 3)
	n, err := src.ReadSamples(dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{0, 0.5, -1}, dst)

	n, err = src.ReadSamples(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, float32(0.25), dst[0])

	n, err = src.ReadSamples(dst)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, src.BufSize())
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	src := NewSource(&sliceReader{err: errors.New("bad chunk")}, 8000, 1, 16)
	_, err := src.ReadSamples(make([]float32, 4))
	assert.ErrorContains(t, err, "bad chunk")
}

func TestSeekable(t *testing.T) {
	t.Parallel()

	rs, err := Seekable(strings.NewReader("abc"))
	require.NoError(t, err)
	_, isStrings := rs.(*strings.Reader)
	assert.True(t, isStrings, "seekable input is used as is")

	rs, err = Seekable(io.MultiReader(strings.NewReader("ab"), strings.NewReader("c")))
	require.NoError(t, err)
	pos, err := rs.Seek(1, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)
}
