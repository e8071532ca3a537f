// SPDX-License-Identifier: EPL-2.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"audacq_buffer_bytes",
		"audacq_xruns_total",
		"audacq_blocks_written_total",
		"audacq_frames_written_total",
		"audacq_entries_total",
		"audacq_sink_errors_total",
		"audacq_log_messages_total",
	} {
		assert.True(t, names[name], name)
	}
}

func TestGateTransitions(t *testing.T) {
	GateTransitions.WithLabelValues("open").Inc()
	ChannelLevel.WithLabelValues("ch0", "peak").Set(-6)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	found := 0
	for _, f := range families {
		switch f.GetName() {
		case "audacq_gate_transitions_total", "audacq_channel_level":
			found++
		}
	}
	assert.Equal(t, 2, found)
}
