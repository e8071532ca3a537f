// SPDX-License-Identifier: EPL-2.0

// Package audacq records multichannel audio and event markers from a
// real-time audio interface.
//
// A Session is the process callback of an audio.Interface. Each period it
// pushes every input channel as a sampled block to a writer, runs an
// optional crossing-rate detector on one channel and pushes the resulting
// onset/offset markers as an event block on the trigger channel:
//
//	w := writer.NewTriggered(s, writer.Options{}, writer.TriggerOptions{
//		Channel:     "trig",
//		Pretrigger:  48000,
//		Posttrigger: 24000,
//	})
//	sess, _ := audacq.NewSession(log, w, audacq.SessionOptions{
//		Channels: 2,
//		Trigger:  "trig",
//		Detect:   &audacq.DetectOptions{Channel: 0, Gate: gate},
//	})
//	_ = w.Start()
//	err := sess.Run(ctx, iface)
//	w.Stop()
//	w.Join()
//
// The writer runs on its own goroutine and drains the blocks into a
// sink.Sink. See the writer package for the continuous and triggered
// recording modes.
//
// # Level monitor
//
// With SessionOptions.MonitorFrames set, the session also copies every
// period into a ringbuffer.PeriodRingBuffer. A Monitor reads it and
// reports peak and RMS levels per channel.
package audacq
