// SPDX-License-Identifier: EPL-2.0

package audio

import "context"

// ProcessFunc is called once per period with one buffer per input channel.
// time is the frame index of the first frame in the period. The buffers are
// reused between calls and must not be retained.
//
// A ProcessFunc runs on the real-time path: it must not block, allocate or
// take locks shared with slower goroutines.
type ProcessFunc func(time uint32, nframes int, in [][]float32)

// Interface is a source of periods, driven either by a sound card or by a
// file.
type Interface interface {
	SampleRate() int
	Channels() int
	PeriodSize() int
	// Run calls fn for every period until ctx is cancelled or the stream
	// ends. A stream ending or a shutdown requested by the audio system is
	// not an error.
	Run(ctx context.Context, fn ProcessFunc) error
}
