// SPDX-License-Identifier: EPL-2.0

// Package audio provides the audio sources that feed an acquisition session.
//
// This package contains:
//   - Source interface for decoded audio input
//   - Registry mapping file extensions to decoders
//   - Resampler and Remixer to match a session's rate and channel count
//   - Interface, the period-driven view of a sound card, and Offline, which
//     drives a Source the same way
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1, 1]. ReadSamples returns io.EOF
// once the stream is finished.
//
// # Periods
//
// An Interface calls a ProcessFunc once per period with one buffer per
// channel:
//
//	src, _ := registry.Open("song.wav")
//	iface, _ := audio.NewOffline(src, audio.OfflineOptions{
//	    SampleRate: 48000,
//	    Channels:   1,
//	    PeriodSize: 1024,
//	})
//	err := iface.Run(ctx, func(time uint32, nframes int, in [][]float32) {
//	    // real-time path: no blocking, no allocation
//	})
//
// Offline resamples and remixes as needed and zero pads the final period.
package audio
