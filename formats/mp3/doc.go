// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 streams with github.com/hajimehoshi/go-mp3.
//
// The decoder always produces stereo output at the stream's sample rate;
// use audio.Remixer for mono. Input does not need to be seekable.
package mp3
