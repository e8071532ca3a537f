// SPDX-License-Identifier: EPL-2.0

// Package formats wires every supported file format into a registry.
package formats

import (
	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/formats/aiff"
	"github.com/ik5/audacq/formats/mp3"
	"github.com/ik5/audacq/formats/vorbis"
	"github.com/ik5/audacq/formats/wav"
)

// NewRegistry returns a registry with the WAV, AIFF, MP3 and Ogg Vorbis
// decoders.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	wav.Register(reg)
	aiff.Register(reg)
	mp3.Register(reg)
	vorbis.Register(reg)
	return reg
}
