// SPDX-License-Identifier: EPL-2.0

// Package metrics holds the prometheus collectors of audacq.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	BufferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audacq_buffer_bytes",
		Help: "Capacity of the writer ring buffer in bytes",
	})
	ChannelLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audacq_channel_level",
		Help: "Signal level per channel in dBFS",
	}, []string{"channel", "stat"})
)

// Counters
var (
	Xruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_xruns_total",
		Help: "Total overruns seen by the writer",
	})
	BlocksWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_blocks_written_total",
		Help: "Total blocks handed to the sink",
	})
	FramesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_frames_written_total",
		Help: "Total frames written by the sink",
	})
	Entries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_entries_total",
		Help: "Total entries opened",
	})
	SinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_sink_errors_total",
		Help: "Total errors returned by the sink",
	})
	LogMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audacq_log_messages_total",
		Help: "Total out-of-band log messages forwarded to the sink",
	})
	GateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audacq_gate_transitions_total",
		Help: "Total detector gate transitions by new state",
	}, []string{"state"})
)
