// SPDX-License-Identifier: EPL-2.0

package writer

import (
	"testing"

	"github.com/ik5/audacq/event"
	"github.com/ik5/audacq/internal/audiotest"
	"github.com/ik5/audacq/ringbuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marker is a trigger event at an absolute frame.
type marker struct {
	frame  uint32
	status event.Status
}

// pushPeriods pushes n periods of channel "a" followed by a "trig" event
// block carrying the markers that fall in each period.
func pushPeriods(t *testing.T, w *TriggeredWriter, n int, marks ...marker) {
	t.Helper()

	var buf []byte
	for i := range n {
		start := uint32(i * period)
		buf = buf[:0]
		for _, m := range marks {
			if m.frame >= start && m.frame < start+period {
				buf = event.AppendNote(buf, m.frame-start, m.status)
			}
		}
		require.NotZero(t, w.PushSamples(start, "a", samples(period)))
		require.NotZero(t, w.Push(start, ringbuffer.Event, "trig", buf))
	}
}

// drive runs the consumer logic without a goroutine.
func drive(w *TriggeredWriter) {
	for b, ok := w.buf.PeekAhead(); ok; b, ok = w.buf.PeekAhead() {
		w.handleBlock(b)
	}
}

func newTriggered(rs *audiotest.RecordingSink, size int) *TriggeredWriter {
	return NewTriggered(rs, Options{BufferSize: size}, TriggerOptions{
		Channel:     "trig",
		Pretrigger:  1000,
		Posttrigger: 500,
	})
}

func TestTriggeredWriter_Window(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 200,
		marker{10000, event.NoteOn},
		marker{10300, event.NoteOff},
	)
	require.NoError(t, w.Start())
	w.Stop()
	w.Join()

	entries := rs.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, uint32(9000), e.Start)
	assert.True(t, e.Closed)
	assert.Equal(t, [][2]uint32{{9000, 10800}}, e.Frames("a"))
	assert.Zero(t, e.Xruns)
	assert.Zero(t, w.Overruns())

	var onsets, offsets int
	for _, wr := range e.Writes {
		if wr.Channel != "trig" {
			continue
		}
		if event.FindTrigger(wr.Data, true) >= 0 {
			onsets++
		}
		if event.FindTrigger(wr.Data, false) >= 0 {
			offsets++
		}
	}
	assert.Equal(t, 1, onsets)
	assert.Equal(t, 1, offsets)
}

func TestTriggeredWriter_Samples(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 60, marker{2000, event.NoteOn}, marker{2010, event.NoteOff})
	drive(w)

	e := rs.Entries()[0]
	first := e.Writes[0]
	assert.Equal(t, "a", first.Channel)
	assert.Equal(t, uint32(1000), first.Start)
	// frame 1000 is sample 40 of the block starting at 960
	got := make([]float32, 1)
	ringbuffer.DecodeSamples(got, first.Data)
	assert.Equal(t, samples(period)[40], got[0])
}

func TestTriggeredWriter_Resume(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 80,
		marker{2000, event.NoteOn},
		marker{2100, event.NoteOff},
		marker{2300, event.NoteOn},
		marker{2400, event.NoteOff},
	)
	drive(w)

	entries := rs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, [][2]uint32{{1000, 2900}}, entries[0].Frames("a"))
	assert.Zero(t, entries[0].Xruns)
	assert.True(t, entries[0].Closed)
}

func TestTriggeredWriter_ResumeAfterClip(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := NewTriggered(rs, Options{BufferSize: 1 << 17}, TriggerOptions{
		Channel:     "trig",
		Pretrigger:  100,
		Posttrigger: 10,
	})
	defer w.Close()

	// the tail ends at 1030, inside the period where the next onset arrives
	pushPeriods(t, w, 40, marker{1020, event.NoteOn}, marker{1020, event.NoteOff}, marker{1050, event.NoteOn})
	drive(w)

	entries := rs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Xruns)
}

func TestTriggeredWriter_TwoEntries(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 150,
		marker{2000, event.NoteOn},
		marker{2100, event.NoteOff},
		marker{6000, event.StimOn},
		marker{6050, event.StimOff},
	)
	require.NoError(t, w.Start())
	w.Stop()
	w.Join()

	entries := rs.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, [][2]uint32{{1000, 2600}}, entries[0].Frames("a"))
	assert.Equal(t, [][2]uint32{{5000, 6550}}, entries[1].Frames("a"))
}

func TestTriggeredWriter_IdleTrim(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 100)
	drive(w)

	assert.Empty(t, rs.Entries())
	perPeriod := 2*ringbuffer.HeaderSize + 1 + 4 + period*ringbuffer.SampleSize
	assert.LessOrEqual(t, w.buf.ReadSpace(), (1000/period+2)*perPeriod)
	assert.GreaterOrEqual(t, w.buf.ReadSpace(), (1000/period)*perPeriod)

	tail, ok := w.buf.Peek()
	require.True(t, ok)
	last := uint32(99 * period)
	assert.Greater(t, tail.End(), last-1000)
}

func TestTriggeredWriter_EarlyOnset(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 30, marker{300, event.NoteOn}, marker{400, event.NoteOff})
	drive(w)

	entries := rs.Entries()
	require.Len(t, entries, 1)
	onset := uint32(300)
	assert.Equal(t, onset-1000, entries[0].Start)
	assert.Equal(t, [][2]uint32{{0, 900}}, entries[0].Frames("a"))
}

func TestTriggeredWriter_XrunKeepsEntry(t *testing.T) {
	t.Parallel()

	rs := &audiotest.RecordingSink{}
	w := newTriggered(rs, 1<<17)
	defer w.Close()

	pushPeriods(t, w, 40, marker{1500, event.NoteOn})
	drive(w)
	require.True(t, rs.Ready())

	w.handleXrun()
	assert.True(t, rs.Ready())
	assert.Equal(t, 1, rs.Entries()[0].Xruns)

	w.handleReset()
	assert.False(t, rs.Ready())
	assert.False(t, w.recording)
}

func TestTriggeredWriter_RequestFrames(t *testing.T) {
	t.Parallel()

	w := newTriggered(&audiotest.RecordingSink{}, 4096)
	defer w.Close()
	plain := New(&audiotest.RecordingSink{}, Options{BufferSize: 4096})
	defer plain.Close()

	assert.Greater(t, w.RequestFrames(2048, 2, period), plain.RequestFrames(2048, 2, period))
}
