// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import (
	"encoding/binary"
	"math"
)

// SampleSize is the width in bytes of one stored sample.
const SampleSize = 4

// EncodeSamples stores src into dst as little-endian float32 values and
// returns the number of samples stored.
func EncodeSamples(dst []byte, src []float32) int {
	n := min(len(dst)/SampleSize, len(src))
	dst = dst[:n*SampleSize]
	for i, v := range src[:n] {
		binary.LittleEndian.PutUint32(dst[i*SampleSize:], math.Float32bits(v))
	}
	return n
}

// DecodeSamples is the inverse of EncodeSamples.
func DecodeSamples(dst []float32, src []byte) int {
	n := min(len(src)/SampleSize, len(dst))
	src = src[:n*SampleSize]
	for i := range dst[:n] {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*SampleSize:]))
	}
	return n
}
