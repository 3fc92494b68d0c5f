package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert pipeline.
type Metrics struct {
	PollsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	PollDuration     prometheus.Histogram
	EventsNormalized prometheus.Counter
	EventsRejected   prometheus.Counter
	DeltaEvents      prometheus.Counter
	SeenSetSize      prometheus.Gauge
	PipelineRunning  prometheus.Gauge

	// Alert dispatch metrics.
	AlertsDispatched  *prometheus.CounterVec // labels: origin={local-urgent-event,operator-broadcast}
	AlertsSuppressed  *prometheus.CounterVec // labels: reason={permission,language}
	AudioPlays        *prometheus.CounterVec // labels: tier={device,media,silent}
	AudioResumeProbes prometheus.Counter

	// Presence and realtime metrics.
	HeartbeatsTotal  prometheus.Counter
	ActiveSessions   prometheus.Gauge
	RealtimeState    prometheus.Gauge // 0=disconnected 1=connecting 2=connected
	RealtimeMessages prometheus.Counter
	ExportedRecords  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.EventsNormalized,
		m.EventsRejected,
		m.DeltaEvents,
		m.SeenSetSize,
		m.PipelineRunning,
		m.AlertsDispatched,
		m.AlertsSuppressed,
		m.AudioPlays,
		m.AudioResumeProbes,
		m.HeartbeatsTotal,
		m.ActiveSessions,
		m.RealtimeState,
		m.RealtimeMessages,
		m.ExportedRecords,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "polls_total",
			Help:      "Feed poll cycles by outcome.",
		}, []string{"outcome"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_pipeline",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-filter cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EventsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "events_normalized_total",
			Help:      "Raw feed records successfully normalized.",
		}),
		EventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "events_rejected_total",
			Help:      "Raw feed records rejected for missing geometry or properties.",
		}),
		DeltaEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "delta_events_total",
			Help:      "Events reported as newly seen by change detection.",
		}),
		SeenSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_pipeline",
			Name:      "seen_set_size",
			Help:      "Number of event identifiers tracked by change detection.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_pipeline",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		AlertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "alerts_dispatched_total",
			Help:      "Alerts raised on the alert surface by origin.",
		}, []string{"origin"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts dropped before the surface by reason.",
		}, []string{"reason"}),
		AudioPlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "audio_plays_total",
			Help:      "Audio playback attempts by the tier that served them.",
		}, []string{"tier"}),
		AudioResumeProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "audio_resume_probes_total",
			Help:      "Opportunistic audio device resume attempts.",
		}),
		HeartbeatsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "presence_heartbeats_total",
			Help:      "Session heartbeat writes to the presence store.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_pipeline",
			Name:      "presence_active_sessions",
			Help:      "Sessions with a heartbeat newer than the liveness threshold.",
		}),
		RealtimeState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_pipeline",
			Name:      "realtime_connection_state",
			Help:      "Realtime bridge state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		RealtimeMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "realtime_messages_total",
			Help:      "Broadcast messages received over the realtime channel.",
		}),
		ExportedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_pipeline",
			Name:      "exported_records_total",
			Help:      "Delta events and alerts published to the export topic.",
		}),
	}
}
