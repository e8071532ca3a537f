// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"time"

	"github.com/ik5/audacq/event"
	"github.com/ik5/audacq/ringbuffer"
	"go.uber.org/zap"
)

// Stream logs what it is given and stores nothing.
type Stream struct {
	log   *zap.Logger
	entry int
	open  bool
	start uint32
}

func NewStream(log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{log: log.Named("sink")}
}

func (s *Stream) Ready() bool { return s.open }

func (s *Stream) NewEntry(frame uint32) error {
	if s.open {
		_ = s.CloseEntry()
	}
	s.open = true
	s.start = frame
	s.log.Info("new entry", zap.Int("entry", s.entry), zap.Uint32("frame", frame))
	return nil
}

func (s *Stream) CloseEntry() error {
	if !s.open {
		return nil
	}
	s.log.Info("closed entry", zap.Int("entry", s.entry))
	s.open = false
	s.entry++
	return nil
}

func (s *Stream) Xrun() error {
	s.log.Warn("xrun", zap.Int("entry", s.entry), zap.Bool("open", s.open))
	return nil
}

func (s *Stream) Write(b ringbuffer.Block, start, stop int) (int, error) {
	start, stop, err := frameRange(b, start, stop)
	if err != nil {
		return 0, err
	}
	if ce := s.log.Check(zap.DebugLevel, "block"); ce != nil {
		ce.Write(
			zap.Uint32("time", b.Time),
			zap.String("channel", b.Channel()),
			zap.Stringer("type", b.Type),
			zap.Int("start", start),
			zap.Int("stop", stop),
		)
	}
	if b.Type == ringbuffer.Event {
		_ = event.Each(b.Data, func(e event.Event) bool {
			s.log.Info("event",
				zap.Uint32("time", b.Time+e.Offset),
				zap.String("channel", b.Channel()),
				zap.Stringer("status", e.Status))
			return true
		})
	}
	return stop - start, nil
}

func (s *Stream) Log(t time.Time, source, msg string) error {
	s.log.Info(msg, zap.String("source", source), zap.Time("at", t))
	return nil
}

// Flush syncs the logger. Sync errors on terminals are ignored.
func (s *Stream) Flush() error {
	_ = s.log.Sync()
	return nil
}

func (s *Stream) Close() error {
	return s.CloseEntry()
}
