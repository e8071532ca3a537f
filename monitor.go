// SPDX-License-Identifier: EPL-2.0

package audacq

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/ik5/audacq/internal/metrics"
	"github.com/ik5/audacq/ringbuffer"
	"github.com/ik5/audacq/utils"
	"go.uber.org/zap"
)

const (
	pollInterval    = 50 * time.Millisecond
	DefaultInterval = 5 * time.Second
)

// Level is the signal level of one channel over a report interval, in
// dBFS.
type Level struct {
	Channel string
	Peak    float64
	RMS     float64
}

// Monitor reads the period tap of a Session and reports channel levels.
type Monitor struct {
	log      *zap.Logger
	tap      *ringbuffer.PeriodRingBuffer
	names    []string
	interval time.Duration

	buf   []float32
	peak  []float64
	sumsq []float64
	count []int
}

// NewMonitor returns nil if the session has no tap. A non-positive
// interval selects DefaultInterval.
func NewMonitor(log *zap.Logger, s *Session, interval time.Duration) *Monitor {
	if s.Tap() == nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	n := len(s.Names())
	return &Monitor{
		log:      log.Named("monitor"),
		tap:      s.Tap(),
		names:    s.Names(),
		interval: interval,
		peak:     make([]float64, n),
		sumsq:    make([]float64, n),
		count:    make([]int, n),
	}
}

// Poll consumes every period in the tap and returns how many it read.
func (m *Monitor) Poll() int {
	periods := 0
	for {
		info, ok := m.tap.Request()
		if !ok {
			return periods
		}
		if cap(m.buf) < info.NFrames {
			m.buf = make([]float32, info.NFrames)
		}
		buf := m.buf[:info.NFrames]
		for c := range info.NChannels {
			m.tap.Pop(buf)
			if c >= len(m.peak) {
				continue
			}
			for _, v := range buf {
				a := math.Abs(float64(v))
				m.peak[c] = max(m.peak[c], a)
				m.sumsq[c] += a * a
			}
			m.count[c] += len(buf)
		}
		periods++
	}
}

// Report returns the levels accumulated since the last report, publishes
// them as metrics and starts a new interval.
func (m *Monitor) Report() []Level {
	levels := make([]Level, len(m.names))
	fields := make([]zap.Field, 0, len(m.names))
	for c, name := range m.names {
		rms := 0.0
		if m.count[c] > 0 {
			rms = math.Sqrt(m.sumsq[c] / float64(m.count[c]))
		}
		levels[c] = Level{Channel: name, Peak: utils.DBFS(m.peak[c]), RMS: utils.DBFS(rms)}
		metrics.ChannelLevel.WithLabelValues(name, "peak").Set(levels[c].Peak)
		metrics.ChannelLevel.WithLabelValues(name, "rms").Set(levels[c].RMS)
		fields = append(fields, zap.String(name, formatLevel(levels[c].Peak)+"/"+formatLevel(levels[c].RMS)))

		m.peak[c], m.sumsq[c], m.count[c] = 0, 0, 0
	}
	m.log.Info("levels (peak/rms dBFS)", fields...)
	return levels
}

func formatLevel(db float64) string {
	if math.IsInf(db, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(db, 'f', 1, 64)
}

// Run polls the tap and reports every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	poll := time.NewTicker(min(pollInterval, m.interval))
	defer poll.Stop()
	report := time.NewTicker(m.interval)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Poll()
			return nil
		case <-poll.C:
			m.Poll()
		case <-report.C:
			m.Poll()
			m.Report()
		}
	}
}
