// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// OfflineOptions configures an Offline interface.
type OfflineOptions struct {
	SampleRate int
	Channels   int
	PeriodSize int
	// Realtime paces periods at the nominal sample rate.
	Realtime bool
	// StartTime is the frame index of the first period.
	StartTime uint32
	// Pace, when set, is called before every period and may block until
	// the consumer can take it. Run stops with its error.
	Pace func(ctx context.Context) error
}

// Offline drives a Source as if it were a sound card: it delivers one
// deinterleaved period per call, resampled and remixed to the configured
// rate and channel count. The last period is zero padded.
type Offline struct {
	src  Source
	opts OfflineOptions

	interleaved []float32
	chans       [][]float32
}

func NewOffline(src Source, opts OfflineOptions) (*Offline, error) {
	if opts.SampleRate <= 0 || opts.Channels <= 0 || opts.PeriodSize <= 0 {
		return nil, fmt.Errorf("%w: rate %d, %d channels, period %d",
			ErrInvalidPeriod, opts.SampleRate, opts.Channels, opts.PeriodSize)
	}

	if src.SampleRate() != opts.SampleRate {
		src = NewResampler(src, opts.SampleRate)
	}
	if src.Channels() != opts.Channels {
		src = NewRemixer(src, opts.Channels)
	}

	o := &Offline{
		src:         src,
		opts:        opts,
		interleaved: make([]float32, opts.PeriodSize*opts.Channels),
		chans:       make([][]float32, opts.Channels),
	}
	for c := range o.chans {
		o.chans[c] = make([]float32, opts.PeriodSize)
	}
	return o, nil
}

func (o *Offline) SampleRate() int { return o.opts.SampleRate }
func (o *Offline) Channels() int   { return o.opts.Channels }
func (o *Offline) PeriodSize() int { return o.opts.PeriodSize }

// Close closes the underlying source.
func (o *Offline) Close() error { return o.src.Close() }

// fill reads one period of interleaved samples. It returns the number of
// whole frames read and io.EOF once the source is finished.
func (o *Offline) fill() (int, error) {
	buf := o.interleaved
	got, empty := 0, 0
	for got < len(buf) {
		n, err := o.src.ReadSamples(buf[got:])
		got += n
		if errors.Is(err, io.EOF) {
			if got == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			return got / o.opts.Channels, err
		}
		if n == 0 {
			if empty++; empty == maxEmptyReads {
				return got / o.opts.Channels, io.ErrNoProgress
			}
		}
	}
	clear(buf[got:])
	return got / o.opts.Channels, nil
}

func (o *Offline) Run(ctx context.Context, fn ProcessFunc) error {
	var tick *time.Ticker
	if o.opts.Realtime {
		period := time.Duration(o.opts.PeriodSize) * time.Second / time.Duration(o.opts.SampleRate)
		tick = time.NewTicker(period)
		defer tick.Stop()
	}

	now := o.opts.StartTime
	nch := o.opts.Channels
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frames, err := o.fill()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("offline read: %w", err)
		}
		if frames == 0 {
			return nil
		}

		if o.opts.Pace != nil {
			if err := o.opts.Pace(ctx); err != nil {
				return err
			}
		}

		for f := range o.opts.PeriodSize {
			for c, ch := range o.chans {
				ch[f] = o.interleaved[f*nch+c]
			}
		}
		fn(now, o.opts.PeriodSize, o.chans)
		now += uint32(o.opts.PeriodSize)

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}
	}
}
