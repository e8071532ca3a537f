// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audacq/event"
	"github.com/ik5/audacq/formats/wav"
	"github.com/ik5/audacq/ringbuffer"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SessionLog is the name of the session log file in the output directory.
const SessionLog = "session.log"

// EntryInfo is the YAML sidecar written for each entry.
type EntryInfo struct {
	UUID       string            `yaml:"uuid"`
	Name       string            `yaml:"name"`
	Start      uint32            `yaml:"start_frame"`
	Created    time.Time         `yaml:"created"`
	SampleRate int               `yaml:"sample_rate"`
	Xruns      int               `yaml:"xruns"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Channels   []ChannelInfo     `yaml:"channels,omitempty"`
	Events     []EventInfo       `yaml:"events,omitempty"`
}

// ChannelInfo describes one sampled channel of an entry.
type ChannelInfo struct {
	Name   string `yaml:"name"`
	File   string `yaml:"file"`
	Start  uint32 `yaml:"start_frame"`
	Frames int    `yaml:"frames"`
}

// EventInfo is one marker recorded in an entry.
type EventInfo struct {
	Time    uint32 `yaml:"time"`
	Channel string `yaml:"channel"`
	Status  string `yaml:"status"`
	Message string `yaml:"message,omitempty"`
}

type wavChannel struct {
	f     *os.File
	enc   *wav.Encoder
	start uint32
}

// WAV writes each entry as entry_NNNNNN_<channel>.wav files plus an
// entry_NNNNNN.yaml sidecar in Dir.
type WAV struct {
	dir        string
	sampleRate int
	attrs      map[string]string
	log        *zap.Logger

	next     int
	entry    *EntryInfo
	channels map[string]*wavChannel
	scratch  []float32

	sessionFile *os.File
	session     *bufio.Writer
	closed      bool
}

// NewWAV creates the output directory if needed and opens the session log.
// Entry numbering continues after any entries already in the directory.
func NewWAV(opts Options) (*WAV, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("wav sink: invalid sample rate %d", opts.SampleRate)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}

	next, err := nextEntry(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(opts.Dir, SessionLog), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &WAV{
		dir:         opts.Dir,
		sampleRate:  opts.SampleRate,
		attrs:       opts.Attributes,
		log:         log.Named("sink"),
		next:        next,
		channels:    make(map[string]*wavChannel),
		sessionFile: f,
		session:     bufio.NewWriter(f),
	}, nil
}

// nextEntry returns one past the highest entry index found in dir.
func nextEntry(dir string) (int, error) {
	existing, err := filepath.Glob(filepath.Join(dir, "entry_*.yaml"))
	if err != nil {
		return 0, err
	}
	next := 0
	for _, path := range existing {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "entry_"), ".yaml")
		if n, err := strconv.Atoi(name); err == nil && n >= next {
			next = n + 1
		}
	}
	return next, nil
}

// validChannel reports whether id can be used in a file name inside the
// output directory.
func validChannel(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`+"\x00")
}

func (s *WAV) Ready() bool { return s.entry != nil }

func (s *WAV) NewEntry(frame uint32) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.CloseEntry(); err != nil {
		return err
	}

	s.entry = &EntryInfo{
		UUID:       uuid.NewString(),
		Name:       fmt.Sprintf("entry_%06d", s.next),
		Start:      frame,
		Created:    time.Now().UTC(),
		SampleRate: s.sampleRate,
		Attributes: s.attrs,
	}
	s.next++
	s.log.Info("new entry", zap.String("entry", s.entry.Name), zap.Uint32("frame", frame))
	return s.logf(time.Now(), "sink", "created %s at frame %d", s.entry.Name, frame)
}

// CloseEntry finalizes the channel files and writes the sidecar.
func (s *WAV) CloseEntry() error {
	if s.entry == nil {
		return nil
	}
	entry := s.entry
	s.entry = nil

	var errs []error
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := s.channels[name]
		entry.Channels = append(entry.Channels, ChannelInfo{
			Name:   name,
			File:   filepath.Base(ch.f.Name()),
			Start:  ch.start,
			Frames: ch.enc.Frames(),
		})
		errs = append(errs, ch.enc.Close(), ch.f.Close())
		delete(s.channels, name)
	}

	data, err := yaml.Marshal(entry)
	if err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, os.WriteFile(filepath.Join(s.dir, entry.Name+".yaml"), data, 0o644))
	}

	s.log.Info("closed entry", zap.String("entry", entry.Name), zap.Int("channels", len(entry.Channels)))
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close %s: %w", entry.Name, err)
	}
	return nil
}

func (s *WAV) Xrun() error {
	if s.entry != nil {
		s.entry.Xruns++
	}
	return s.logf(time.Now(), "sink", "xrun")
}

func (s *WAV) Write(b ringbuffer.Block, start, stop int) (int, error) {
	if s.entry == nil {
		return 0, ErrNoEntry
	}
	start, stop, err := frameRange(b, start, stop)
	if err != nil {
		return 0, err
	}

	switch b.Type {
	case ringbuffer.Sampled:
		return s.writeSamples(b, start, stop)
	case ringbuffer.Event:
		return s.writeEvents(b)
	default:
		return 0, nil
	}
}

func (s *WAV) writeSamples(b ringbuffer.Block, start, stop int) (int, error) {
	ch, err := s.channel(b.ID, b.Time+uint32(start))
	if err != nil {
		return 0, err
	}

	n := stop - start
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	samples := s.scratch[:n]
	ringbuffer.DecodeSamples(samples, b.Data[start*ringbuffer.SampleSize:])
	if err := ch.enc.Write(samples); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *WAV) writeEvents(b ringbuffer.Block) (int, error) {
	channel := b.Channel()
	err := event.Each(b.Data, func(e event.Event) bool {
		info := EventInfo{
			Time:    b.Time + e.Offset,
			Channel: channel,
			Status:  e.Status.String(),
		}
		switch e.Status.Kind() {
		case event.Info, event.StimOn, event.StimOff:
			info.Message = e.Message()
		default:
			if len(e.Data) > 0 {
				info.Message = hex.EncodeToString(e.Data)
			}
		}
		s.entry.Events = append(s.entry.Events, info)
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("%s at %d: %w", channel, b.Time, err)
	}
	return 1, nil
}

// channel returns the open file for id, creating it on first use within
// the entry.
func (s *WAV) channel(id []byte, start uint32) (*wavChannel, error) {
	if ch, ok := s.channels[string(id)]; ok {
		return ch, nil
	}

	name := string(id)
	if !validChannel(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadChannel, name)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.wav", s.entry.Name, name))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}
	ch := &wavChannel{f: f, enc: wav.NewEncoder(f, s.sampleRate, 1), start: start}
	s.channels[name] = ch
	return ch, nil
}

func (s *WAV) Log(t time.Time, source, msg string) error {
	return s.logf(t, source, "%s", msg)
}

func (s *WAV) logf(t time.Time, source, format string, args ...any) error {
	if s.closed {
		return ErrClosed
	}
	_, err := fmt.Fprintf(s.session, "%s [%s] %s\n", t.UTC().Format(time.RFC3339Nano), source, fmt.Sprintf(format, args...))
	return err
}

func (s *WAV) Flush() error {
	if s.closed {
		return nil
	}
	return s.session.Flush()
}

// Close closes any open entry and the session log.
func (s *WAV) Close() error {
	if s.closed {
		return nil
	}
	err := s.CloseEntry()
	s.closed = true
	return errors.Join(err, s.session.Flush(), s.sessionFile.Close())
}
