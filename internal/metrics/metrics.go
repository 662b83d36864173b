package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	Running = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnome_playback_running",
		Help: "1 while the metronome is playing",
	})
	TempoBPM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnome_tempo_bpm",
		Help: "Configured tempo in beats per minute",
	})
	BufferSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnome_playback_buffer_samples",
		Help: "Length of the current playback buffer in samples",
	})
	StreamListeners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mnome_stream_listeners",
		Help: "Connected network listeners by transport",
	}, []string{"transport"})
)

// Counters
var (
	StartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnome_starts_total",
		Help: "Playback start attempts by outcome",
	}, []string{"outcome"})
	RestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnome_restarts_total",
		Help: "Restarts caused by configuration changes during playback",
	})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnome_commands_total",
		Help: "Commands handled by name and outcome",
	}, []string{"command", "outcome"})
	FramesPulledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnome_frames_pulled_total",
		Help: "Frames handed to sinks by sink name",
	}, []string{"sink"})
	StreamFramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnome_stream_frames_dropped_total",
		Help: "Stream frames dropped because no consumer kept up",
	})
	EncodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnome_opus_encode_errors_total",
		Help: "Total Opus encode failures",
	})
)

// Histograms
var (
	BufferBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mnome_buffer_build_duration_ms",
		Help:    "Time to assemble the playback buffer in milliseconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
	})
)
