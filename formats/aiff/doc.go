// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files with github.com/go-audio/aiff.
//
// 16, 24 and 32 bit PCM files are supported. Samples are normalized to
// float32 in [-1, 1). Register adds the decoder to an audio.Registry under
// the "aiff" and "aif" extensions.
package aiff
