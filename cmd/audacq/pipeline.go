// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ik5/audacq"
	"github.com/ik5/audacq/audio"
	"github.com/ik5/audacq/dsp"
	"github.com/ik5/audacq/internal/config"
	"github.com/ik5/audacq/msgbus"
	"github.com/ik5/audacq/sink"
	"github.com/ik5/audacq/writer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// recorder is the writer API used by the pipeline. Both writer kinds
// implement it.
type recorder interface {
	audacq.Pusher
	Start() error
	Stop()
	Join()
	Close() error
	Overruns() uint64
	RequestFrames(nframes, nchannels, periodSize int) int
	WaitWriteSpace(ctx context.Context, n int) error
}

// logBus is the out-of-band log transport.
type logBus interface {
	writer.LogSource
	Publish(source, text string) error
	Close() error
}

type pipeline struct {
	log     *zap.Logger
	cfg     *config.Settings
	sink    sink.Sink
	bus     logBus
	w       recorder
	session *audacq.Session
	monitor *audacq.Monitor
}

func newPipeline(ctx context.Context, log *zap.Logger, cfg *config.Settings) (_ *pipeline, err error) {
	p := &pipeline{log: log, cfg: cfg}
	defer func() {
		if err != nil {
			p.close()
		}
	}()

	kind, err := sink.ParseKind(cfg.Sink.Kind)
	if err != nil {
		return nil, err
	}
	p.sink, err = sink.New(kind, sink.Options{
		Dir:        cfg.Sink.Dir,
		SampleRate: cfg.Session.SampleRate,
		Attributes: map[string]string{"session": cfg.Session.Name, "mode": cfg.Writer.Mode},
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	switch cfg.Bus.Kind {
	case config.BusMQTT:
		m, err := msgbus.DialMQTT(ctx, cfg.Session.Name, msgbus.MQTTOptions{
			Broker:   cfg.Bus.Broker,
			ClientID: cfg.Bus.ClientID,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		p.bus = m
	default:
		p.bus = msgbus.NewBus(cfg.Session.Name)
	}

	wopts := writer.Options{
		Logger:    log,
		LogSource: p.bus,
		LogBatch:  cfg.Writer.LogBatch,
	}
	if cfg.Writer.Mode == config.ModeTriggered {
		p.w = writer.NewTriggered(p.sink, wopts, writer.TriggerOptions{
			Channel:     cfg.Writer.TriggerChannel,
			Pretrigger:  cfg.Frames(cfg.Writer.Pretrigger),
			Posttrigger: cfg.Frames(cfg.Writer.Posttrigger),
		})
	} else {
		p.w = writer.New(p.sink, wopts)
	}
	size := p.w.RequestFrames(cfg.Frames(cfg.Writer.BufferSeconds), cfg.Session.Channels, cfg.Session.PeriodSize)
	log.Info("writer ready", zap.String("mode", cfg.Writer.Mode), zap.Int("buffer_bytes", size))

	sopts := audacq.SessionOptions{
		Channels: cfg.Session.Channels,
		Trigger:  cfg.Writer.TriggerChannel,
	}
	if cfg.Detect.Enabled {
		sopts.Detect = &audacq.DetectOptions{
			Channel: cfg.Detect.Channel,
			Gate: dsp.GateOptions{
				OpenThreshold:  cfg.Detect.OpenThreshold,
				OpenCount:      cfg.Detect.OpenCount,
				OpenPeriods:    cfg.Periods(cfg.Detect.OpenWindow),
				CloseThreshold: cfg.Detect.CloseThreshold,
				CloseCount:     cfg.Detect.CloseCount,
				ClosePeriods:   cfg.Periods(cfg.Detect.CloseWindow),
				PeriodSize:     cfg.AnalysisPeriod(),
			},
		}
	}
	if cfg.Monitor.Enabled {
		sopts.MonitorFrames = 8 * cfg.Session.PeriodSize * cfg.Session.Channels
	}
	p.session, err = audacq.NewSession(log, p.w, sopts)
	if err != nil {
		return nil, err
	}
	if cfg.Monitor.Enabled {
		interval := time.Duration(cfg.Monitor.Interval * float64(time.Second))
		p.monitor = audacq.NewMonitor(log, p.session, interval)
	}
	return p, nil
}

// run starts the writer, drives every interface in turn and stops the
// writer once they are done or ctx is cancelled. Frame times continue
// across interfaces.
func (p *pipeline) run(ctx context.Context, next func(start uint32) (audio.Interface, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if p.cfg.Metrics.Enabled {
		p.serveMetrics(gctx, g)
	}
	if p.monitor != nil {
		g.Go(func() error { return p.monitor.Run(gctx) })
	}

	if err := p.w.Start(); err != nil {
		return err
	}
	p.publish("recording started")

	g.Go(func() error {
		defer cancel()
		defer func() {
			p.w.Stop()
			p.w.Join()
		}()

		for {
			start := uint32(p.session.Periods() * uint64(p.cfg.Session.PeriodSize))
			iface, err := next(start)
			if err != nil || iface == nil {
				return err
			}
			err = p.session.Run(gctx, iface)
			if c, ok := iface.(interface{ Close() error }); ok {
				_ = c.Close()
			}
			if errors.Is(err, context.Canceled) {
				p.publish("recording interrupted")
				return nil
			}
			if err != nil {
				return err
			}
		}
	})

	err := g.Wait()
	p.log.Info("recording finished",
		zap.Uint64("periods", p.session.Periods()),
		zap.Uint64("overruns", p.w.Overruns()))
	return err
}

// pace blocks until the writer has room for one more period. File playback
// calls it before every period so a slow sink delays reading instead of
// dropping data.
func (p *pipeline) pace(ctx context.Context) error {
	return p.w.WaitWriteSpace(ctx, writer.PeriodBytes(p.cfg.Session.Channels, p.cfg.Session.PeriodSize))
}

func (p *pipeline) publish(text string) {
	if err := p.bus.Publish("audacq", text); err != nil {
		p.log.Warn("publish log message", zap.Error(err))
	}
}

func (p *pipeline) serveMetrics(ctx context.Context, g *errgroup.Group) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              p.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		p.log.Info("serving metrics", zap.String("listen", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

func (p *pipeline) close() {
	if p.w != nil {
		if err := p.w.Close(); err != nil {
			p.log.Warn("close writer", zap.Error(err))
		}
	}
	if p.session != nil {
		_ = p.session.Close()
	}
	if p.bus != nil {
		_ = p.bus.Close()
	}
	if p.sink != nil {
		if err := p.sink.Close(); err != nil {
			p.log.Warn("close sink", zap.Error(err))
		}
	}
}

var _ recorder = (*writer.TriggeredWriter)(nil)
