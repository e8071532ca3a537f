// SPDX-License-Identifier: EPL-2.0

// Package writer moves blocks from a real-time producer to a sink.
//
// A BufferedWriter owns a BlockRingBuffer. The producer (usually an audio
// callback) calls Push, PushSamples, Xrun and DataReady; none of these
// block, allocate or take a lock. A consumer goroutine started with Start
// drains the buffer into a sink.Sink, forwards out-of-band log messages
// and flushes the sink whenever it runs out of data.
//
// The plain BufferedWriter records continuously: it opens an entry at the
// first block and closes it on xruns and resets. TriggeredWriter only
// records around onset/offset markers found on a trigger channel, keeping
// a pretrigger window of older data in the buffer.
//
// Frame times are 32 bit and wrap; they are compared through their signed
// difference.
package writer
