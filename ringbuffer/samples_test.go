// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeSamples(t *testing.T) {
	t.Parallel()

	src := []float32{0, 1, -1, 0.5, -0.25}
	buf := make([]byte, len(src)*SampleSize)
	assert.Equal(t, len(src), EncodeSamples(buf, src))

	dst := make([]float32, len(src))
	assert.Equal(t, len(src), DecodeSamples(dst, buf))
	assert.Equal(t, src, dst)
}

func TestEncodeSamples_Bounded(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 10)
	assert.Equal(t, 2, EncodeSamples(buf, []float32{1, 2, 3}))

	dst := make([]float32, 1)
	assert.Equal(t, 1, DecodeSamples(dst, buf))
	assert.Equal(t, float32(1), dst[0])
}
