// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 clamps x to [-1, 1] and scales it by 32767, so the
// conversion is symmetric around zero.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(x * math.MaxInt16)
}

// Float32ToInt scales x to a signed integer of the given bit depth.
func Float32ToInt(x float32, bitDepth int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	full := float64(int64(1)<<(bitDepth-1) - 1)
	return int(float64(x) * full)
}

// IntToFloat32 normalizes a signed integer sample of the given bit depth
// to [-1, 1).
func IntToFloat32(v, bitDepth int) float32 {
	return float32(v) / float32(int64(1)<<(bitDepth-1))
}

// DBFS converts a linear amplitude to decibels relative to full scale.
// Zero maps to -Inf.
func DBFS(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
