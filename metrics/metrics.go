// Package metrics holds the Prometheus instrumentation for the
// realtime meeting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains every collector the service exposes. Construct one
// per process with New; tests pass their own Registerer so collectors
// never collide.
type Metrics struct {
	// Session lifecycle
	ActiveSessions    prometheus.Gauge
	ConnectedClients  prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter

	// Audio chunk processing
	ChunksProcessed       prometheus.Counter
	ChunksDropped         prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// Broadcast fan-out
	BroadcastsSent    prometheus.Counter
	BroadcastFailures prometheus.Counter

	// Finalize / analysis
	AnalysesCompleted prometheus.Counter
	AnalysesFailed    prometheus.Counter
	AnalysisDuration  prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "minuted_active_sessions",
			Help: "Current number of live meeting sessions",
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "minuted_connected_clients",
			Help: "Current number of connected websocket clients",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_sessions_created_total",
			Help: "Total number of meeting sessions created",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_sessions_destroyed_total",
			Help: "Total number of meeting sessions torn down",
		}),
		ChunksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_chunks_processed_total",
			Help: "Total number of audio chunks transcribed successfully",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_chunks_dropped_total",
			Help: "Total number of audio chunks dropped after transcription failure",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "minuted_transcription_duration_seconds",
			Help:    "Time spent transcribing a single audio chunk",
			Buckets: prometheus.DefBuckets,
		}),
		BroadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_broadcasts_sent_total",
			Help: "Total number of frames broadcast to sessions",
		}),
		BroadcastFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_broadcast_failures_total",
			Help: "Total number of per-client broadcast delivery failures",
		}),
		AnalysesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_analyses_completed_total",
			Help: "Total number of finalize requests that produced insights",
		}),
		AnalysesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "minuted_analyses_failed_total",
			Help: "Total number of finalize requests that failed analysis",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "minuted_analysis_duration_seconds",
			Help:    "Time spent analyzing a finalized transcript",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
