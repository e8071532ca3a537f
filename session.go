// SPDX-License-Identifier: EPL-2.0

package audacq

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/dsp"
	"github.com/ik5/audacq/event"
	"github.com/ik5/audacq/internal/metrics"
	"github.com/ik5/audacq/ringbuffer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultTrigger is the name of the trigger channel when none is given.
const DefaultTrigger = "trig"

// Pusher is the producer side of a writer. Its methods are called from the
// audio thread and must not block.
type Pusher interface {
	Push(t uint32, dtype ringbuffer.DataType, id string, data []byte) int
	PushSamples(t uint32, id string, samples []float32) int
	DataReady()
}

// DetectOptions enables the detector on the input channel Channel.
type DetectOptions struct {
	Channel int
	Gate    dsp.GateOptions
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Channels int
	// Names are the block ids of the input channels. Missing names default
	// to in_1, in_2...
	Names []string
	// Trigger is the id of the event channel carrying detector markers.
	Trigger string
	Detect  *DetectOptions
	// MonitorFrames is the capacity in samples of the level monitor tap.
	// Zero disables the tap.
	MonitorFrames int
}

// Session connects an audio interface to a writer.
type Session struct {
	log     *zap.Logger
	w       Pusher
	names   []string
	trigger string

	gate       *dsp.CrossingTrigger[float32]
	detectChan int
	events     []byte
	opened     prometheus.Counter
	closed     prometheus.Counter

	tap      *ringbuffer.PeriodRingBuffer
	tapDrops atomic.Uint64
	periods  atomic.Uint64
}

func NewSession(log *zap.Logger, w Pusher, opts SessionOptions) (*Session, error) {
	if opts.Channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidSession, opts.Channels)
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		log:     log.Named("session"),
		w:       w,
		names:   make([]string, opts.Channels),
		trigger: opts.Trigger,
	}
	if s.trigger == "" {
		s.trigger = DefaultTrigger
	}
	for c := range s.names {
		if c < len(opts.Names) && opts.Names[c] != "" {
			s.names[c] = opts.Names[c]
		} else {
			s.names[c] = fmt.Sprintf("in_%d", c+1)
		}
		if s.names[c] == s.trigger {
			return nil, fmt.Errorf("%w: input %q shadows the trigger channel", ErrInvalidSession, s.names[c])
		}
	}

	if d := opts.Detect; d != nil {
		if d.Channel < 0 || d.Channel >= opts.Channels {
			return nil, fmt.Errorf("%w: detect channel %d of %d", ErrInvalidSession, d.Channel, opts.Channels)
		}
		gate, err := dsp.NewCrossingTrigger[float32](d.Gate)
		if err != nil {
			return nil, err
		}
		s.gate = gate
		s.detectChan = d.Channel
		s.events = make([]byte, 0, 4*event.Size(2))
		s.opened = metrics.GateTransitions.WithLabelValues("open")
		s.closed = metrics.GateTransitions.WithLabelValues("closed")
	}

	if opts.MonitorFrames > 0 {
		s.tap = ringbuffer.NewPeriod(opts.MonitorFrames)
	}
	return s, nil
}

// Names returns the block ids of the input channels.
func (s *Session) Names() []string { return s.names }

// Trigger returns the id of the trigger channel.
func (s *Session) Trigger() string { return s.trigger }

// Gate returns the detector, or nil when detection is disabled.
func (s *Session) Gate() *dsp.CrossingTrigger[float32] { return s.gate }

// Tap returns the monitor tap, or nil when it is disabled.
func (s *Session) Tap() *ringbuffer.PeriodRingBuffer { return s.tap }

// Periods returns the number of periods processed.
func (s *Session) Periods() uint64 { return s.periods.Load() }

// TapDrops returns the number of periods that did not fit the monitor tap.
func (s *Session) TapDrops() uint64 { return s.tapDrops.Load() }

// Process is the audio callback. It does not allocate or block.
func (s *Session) Process(t uint32, nframes int, in [][]float32) {
	nch := min(len(in), len(s.names))
	for c := range nch {
		s.w.PushSamples(t, s.names[c], in[c][:nframes])
	}

	if s.gate != nil && s.detectChan < nch {
		if off := s.gate.Push(in[s.detectChan][:nframes]); off >= 0 {
			status := event.NoteOff
			if s.gate.Open() {
				status = event.NoteOn
				s.opened.Inc()
			} else {
				s.closed.Inc()
			}
			s.events = event.AppendNote(s.events[:0], uint32(off), status)
			s.w.Push(t, ringbuffer.Event, s.trigger, s.events)
		}
	}

	if s.tap != nil && nch > 0 {
		if s.tap.Reserve(t, nframes, nch) > 0 {
			for c := range nch {
				s.tap.Push(in[c][:nframes])
			}
		} else {
			s.tapDrops.Add(1)
		}
	}

	s.periods.Add(1)
	s.w.DataReady()
}

// Run drives iface until it returns. The writer must already be started.
func (s *Session) Run(ctx context.Context, iface audio.Interface) error {
	if iface.Channels() != len(s.names) {
		return fmt.Errorf("%w: interface has %d, session expects %d",
			ErrChannelMismatch, iface.Channels(), len(s.names))
	}

	s.log.Info("session started",
		zap.Strings("channels", s.names),
		zap.Int("rate", iface.SampleRate()),
		zap.Int("period", iface.PeriodSize()),
		zap.Bool("detect", s.gate != nil))

	err := iface.Run(ctx, s.Process)

	s.log.Info("session finished",
		zap.Uint64("periods", s.periods.Load()),
		zap.Uint64("tap_drops", s.tapDrops.Load()),
		zap.Error(err))
	return err
}

// Close releases the monitor tap.
func (s *Session) Close() error {
	if s.tap == nil {
		return nil
	}
	return s.tap.Close()
}
