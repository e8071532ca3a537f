// SPDX-License-Identifier: EPL-2.0

// Package capture records from a sound card through miniaudio
// (github.com/gen2brain/malgo).
//
// A Device is an audio.Interface: Run starts the device and calls the
// process function from the audio thread with one deinterleaved float32
// buffer per channel. A stop initiated by the audio system ends Run
// without an error, like the end of a file does for audio.Offline.
package capture
