// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"time"

	"github.com/ik5/audacq/ringbuffer"
)

// Null discards data and keeps counters.
type Null struct {
	open bool

	Entries  int
	Blocks   int
	Frames   int
	Xruns    int
	Messages int
}

func (s *Null) Ready() bool { return s.open }

func (s *Null) NewEntry(uint32) error {
	s.open = true
	s.Entries++
	return nil
}

func (s *Null) CloseEntry() error {
	s.open = false
	return nil
}

func (s *Null) Xrun() error {
	s.Xruns++
	return nil
}

func (s *Null) Write(b ringbuffer.Block, start, stop int) (int, error) {
	start, stop, err := frameRange(b, start, stop)
	if err != nil {
		return 0, err
	}
	s.Blocks++
	s.Frames += stop - start
	return stop - start, nil
}

func (s *Null) Log(time.Time, string, string) error {
	s.Messages++
	return nil
}

func (s *Null) Flush() error { return nil }
func (s *Null) Close() error { return nil }
