// SPDX-License-Identifier: EPL-2.0

package writer

import (
	"fmt"

	"github.com/ik5/audacq/event"
	"github.com/ik5/audacq/ringbuffer"
	"github.com/ik5/audacq/sink"
	"go.uber.org/zap"
)

// TriggerOptions configures the recording window of a TriggeredWriter.
type TriggerOptions struct {
	// Channel is the id of the event blocks carrying onset/offset markers.
	Channel string
	// Pretrigger is the number of frames recorded before an onset.
	Pretrigger int
	// Posttrigger is the number of frames recorded after an offset. At
	// least one frame is always recorded.
	Posttrigger int
}

// TriggeredWriter records entries that start Pretrigger frames before an
// onset marker and end Posttrigger frames after the matching offset
// marker. While idle, it keeps one pretrigger window of data in the buffer.
type TriggeredWriter struct {
	*BufferedWriter

	channel string
	pre     uint32
	post    uint32

	recording  bool
	lastOffset uint32 // end of the posttrigger tail
	clipped    bool   // the tail has dropped frames past lastOffset
}

func NewTriggered(s sink.Sink, opts Options, topts TriggerOptions) *TriggeredWriter {
	w := &TriggeredWriter{
		BufferedWriter: newBuffered(s, opts),
		channel:        topts.Channel,
		pre:            uint32(max(topts.Pretrigger, 0)),
		post:           uint32(max(topts.Posttrigger, 1)),
	}
	w.h = w
	w.extra = int(w.pre)
	return w
}

// since returns the signed number of frames from b to a.
func since(a, b uint32) int32 { return int32(a - b) }

func (w *TriggeredWriter) handleBlock(cur ringbuffer.Block) {
	if cur.Type == ringbuffer.Event && string(cur.ID) == w.channel {
		w.scan(cur)
	}

	switch {
	case w.recording:
		w.writeCurrent(cur)
	case w.sink.Ready():
		w.writeTail(cur)
	default:
		w.trim(cur)
	}
}

// handleXrun marks the gap but keeps the entry open.
func (w *TriggeredWriter) handleXrun() {
	w.sinkXrun()
}

func (w *TriggeredWriter) handleReset() {
	w.recording = false
	w.closeEntry()
}

func (w *TriggeredWriter) scan(cur ringbuffer.Block) {
	err := event.Each(cur.Data, func(e event.Event) bool {
		at := cur.Time + e.Offset
		switch {
		case !w.recording && e.Status.IsOnset():
			if w.sink.Ready() {
				w.resume(at)
			} else {
				w.startRecording(cur, at)
			}
		case w.recording && e.Status.IsOffset():
			w.stopRecording(at)
		}
		return true
	})
	if err != nil {
		w.log.Warn("malformed trigger block", zap.Uint32("time", cur.Time), zap.Error(err))
	}
}

// startRecording opens an entry Pretrigger frames before at and writes the
// buffered blocks older than cur, trimmed to the entry start.
func (w *TriggeredWriter) startRecording(cur ringbuffer.Block, at uint32) {
	onset := at - w.pre
	w.newEntry(onset)
	w.log.Info("recording started", zap.Uint32("onset", at), zap.Uint32("frame", onset))

	for w.buf.Ahead() > cur.Size() {
		tail, _ := w.buf.Peek()
		switch {
		case since(onset, tail.End()) >= 0:
			// entirely before the entry
		case since(onset, tail.Time) > 0:
			w.writeBlock(tail, int(since(onset, tail.Time)), 0)
		default:
			w.writeBlock(tail, 0, 0)
		}
		w.buf.Release()
	}
	w.recording = true
	w.clipped = false
}

// resume continues the open entry when an onset arrives during the
// posttrigger tail. Frames already cut from the tail are marked as an xrun.
func (w *TriggeredWriter) resume(at uint32) {
	w.log.Info("recording resumed", zap.Uint32("onset", at))
	if w.clipped {
		w.sinkXrun()
	}
	w.recording = true
	w.clipped = false
}

// stopRecording leaves the entry open until Posttrigger frames after at.
func (w *TriggeredWriter) stopRecording(at uint32) {
	w.recording = false
	w.lastOffset = at + w.post
	w.log.Info("recording stopped", zap.Uint32("offset", at), zap.Uint32("last", w.lastOffset))
}

// writeCurrent writes cur, which must be the oldest block in the buffer.
func (w *TriggeredWriter) writeCurrent(cur ringbuffer.Block) {
	if w.buf.Ahead() != cur.Size() {
		panic(fmt.Sprintf("writer: %d unwritten bytes before block at frame %d",
			w.buf.Ahead()-cur.Size(), cur.Time))
	}
	w.writeBlock(cur, 0, 0)
	w.buf.Release()
}

// writeTail writes the part of cur before lastOffset, closing the entry
// once a block starts at or after it.
func (w *TriggeredWriter) writeTail(cur ringbuffer.Block) {
	left := since(w.lastOffset, cur.Time)
	if left <= 0 {
		w.closeEntry()
		w.trim(cur)
		return
	}

	n := min(int(left), cur.Frames())
	if n < cur.Frames() {
		w.clipped = true
	}
	w.writeBlock(cur, 0, n)
	w.buf.Release()
}

// trim releases blocks that ended a full pretrigger window before cur.
func (w *TriggeredWriter) trim(cur ringbuffer.Block) {
	horizon := cur.Time - w.pre
	for {
		tail, ok := w.buf.Peek()
		if !ok || since(horizon, tail.End()) < 0 {
			return
		}
		w.buf.Release()
	}
}
