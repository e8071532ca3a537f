// SPDX-License-Identifier: EPL-2.0

package audacq

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ik5/audacq/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewMonitor_NoTap(t *testing.T) {
	t.Parallel()

	s, err := NewSession(nil, &fakePusher{}, SessionOptions{Channels: 1})
	require.NoError(t, err)
	assert.Nil(t, NewMonitor(nil, s, time.Second))
}

func TestMonitor_Levels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s, err := NewSession(nil, &fakePusher{}, SessionOptions{
		Channels:      2,
		Names:         []string{"mon_a", "mon_b"},
		MonitorFrames: 1 << 12,
	})
	require.NoError(t, err)
	defer s.Close()
	m := NewMonitor(zap.New(core), s, time.Second)
	require.NotNil(t, m)

	half := constant(64, -0.5)
	silence := constant(64, 0)
	s.Process(0, 64, [][]float32{half, silence})
	s.Process(64, 64, [][]float32{half, silence})

	assert.Equal(t, 2, m.Poll())
	assert.Zero(t, m.Poll())

	levels := m.Report()
	require.Len(t, levels, 2)
	assert.Equal(t, "mon_a", levels[0].Channel)
	assert.InDelta(t, -6.02, levels[0].Peak, 0.01)
	assert.InDelta(t, -6.02, levels[0].RMS, 0.01)
	assert.True(t, math.IsInf(levels[1].Peak, -1))
	assert.InDelta(t, -6.02, testutil.ToFloat64(metrics.ChannelLevel.WithLabelValues("mon_a", "peak")), 0.01)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "-6.0/-6.0", fields["mon_a"])
	assert.Equal(t, "-inf/-inf", fields["mon_b"])

	levels = m.Report()
	assert.True(t, math.IsInf(levels[0].Peak, -1), "report starts a new interval")
}

func TestMonitor_Run(t *testing.T) {
	s, err := NewSession(nil, &fakePusher{}, SessionOptions{Channels: 1, MonitorFrames: 1 << 12})
	require.NoError(t, err)
	defer s.Close()
	m := NewMonitor(nil, s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	s.Process(0, 64, [][]float32{constant(64, 0.25)})
	assert.Eventually(t, func() bool { return s.Tap().ReadSpace() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
