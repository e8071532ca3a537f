// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"time"

	"github.com/ik5/audacq/ringbuffer"
)

// Write is one frame range handed to a RecordingSink.
type Write struct {
	Channel    string
	Type       ringbuffer.DataType
	Start, End uint32
	Data       []byte // copy of the written payload
}

// Entry is one entry seen by a RecordingSink.
type Entry struct {
	Start  uint32
	Xruns  int
	Closed bool
	Writes []Write
}

// Frames returns the written frame ranges of channel, merged where they
// touch.
func (e *Entry) Frames(channel string) [][2]uint32 {
	var out [][2]uint32
	for _, w := range e.Writes {
		if w.Channel != channel {
			continue
		}
		if n := len(out); n > 0 && out[n-1][1] == w.Start {
			out[n-1][1] = w.End
			continue
		}
		out = append(out, [2]uint32{w.Start, w.End})
	}
	return out
}

// LogLine is one message passed to RecordingSink.Log.
type LogLine struct {
	Time   time.Time
	Source string
	Text   string
}

// RecordingSink implements sink.Sink and remembers every call. It is safe
// to inspect from a test goroutine while a writer is running.
type RecordingSink struct {
	mu      sync.Mutex
	entries []*Entry
	open    *Entry
	xruns   int
	flushes int
	logs    []LogLine
	closed  bool
}

func (s *RecordingSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open != nil
}

func (s *RecordingSink) NewEntry(frame uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		s.open.Closed = true
	}
	s.open = &Entry{Start: frame}
	s.entries = append(s.entries, s.open)
	return nil
}

func (s *RecordingSink) CloseEntry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		s.open.Closed = true
		s.open = nil
	}
	return nil
}

func (s *RecordingSink) Xrun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xruns++
	if s.open != nil {
		s.open.Xruns++
	}
	return nil
}

func (s *RecordingSink) Write(b ringbuffer.Block, start, stop int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := b.Frames()
	if b.Type != ringbuffer.Sampled {
		start, stop = 0, n
	} else if stop == 0 || stop > n {
		stop = n
	}
	w := Write{
		Channel: b.Channel(),
		Type:    b.Type,
		Start:   b.Time + uint32(start),
		End:     b.Time + uint32(stop),
	}
	if b.Type == ringbuffer.Sampled {
		w.Data = append([]byte(nil), b.Data[start*ringbuffer.SampleSize:stop*ringbuffer.SampleSize]...)
	} else {
		w.Data = append([]byte(nil), b.Data...)
	}

	if s.open == nil {
		// recorded in a detached entry so stray writes show up in tests
		s.entries = append(s.entries, &Entry{Start: w.Start, Closed: true, Writes: []Write{w}})
		return stop - start, nil
	}
	s.open.Writes = append(s.open.Writes, w)
	return stop - start, nil
}

func (s *RecordingSink) Log(t time.Time, source, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogLine{Time: t, Source: source, Text: msg})
	return nil
}

func (s *RecordingSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Entries returns a snapshot of all entries seen so far.
func (s *RecordingSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
		out[i].Writes = append([]Write(nil), e.Writes...)
	}
	return out
}

func (s *RecordingSink) Xruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xruns
}

func (s *RecordingSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *RecordingSink) Logs() []LogLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogLine(nil), s.logs...)
}

func (s *RecordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
