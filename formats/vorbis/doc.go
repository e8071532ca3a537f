// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with github.com/jfreymuth/oggvorbis.
//
// Samples are produced as interleaved float32 directly by the decoder, so
// no conversion takes place.
package vorbis
