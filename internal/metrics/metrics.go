// ================================
// internal/metrics/metrics.go - Self-monitoring for AQUAWATCH-CORE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Read-model mutation metrics
	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_events_applied_total",
			Help: "Total number of mutations applied to the read model",
		},
		[]string{"source"}, // telemetry_poll, infra_poll, bootstrap, alerts_stream, quality_stream, chat, operator
	)

	// Push channel metrics
	StreamMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_stream_messages_total",
			Help: "Total number of push messages received per channel",
		},
		[]string{"channel", "result"}, // alerts/water_quality, applied/dropped
	)

	StreamReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_stream_reconnects_total",
			Help: "Total number of reconnect attempts per push channel",
		},
		[]string{"channel"},
	)

	StreamConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aquawatch_core_stream_connection_state",
			Help: "Push channel state (0=closed, 1=connecting, 2=open)",
		},
		[]string{"channel"},
	)

	// Backend client metrics
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_backend_requests_total",
			Help: "Total number of HTTP requests issued against the backend",
		},
		[]string{"method", "result"}, // ok/transport_error/server_error
	)

	// Pull loop metrics
	PollRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_poll_requests_total",
			Help: "Total number of poll fetches against the backend",
		},
		[]string{"loop", "result"}, // telemetry/infra, success/error
	)

	BootstrapFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_bootstrap_fetches_total",
			Help: "Total number of bootstrap fetches per endpoint",
		},
		[]string{"endpoint", "result"},
	)

	// Alert pipeline metrics
	AlertsMergedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_alerts_merged_total",
			Help: "Alerts accepted into the capped buffers",
		},
		[]string{"kind", "origin"}, // incident/quality, push/synthesized
	)

	AlertsDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aquawatch_core_alerts_deduplicated_total",
			Help: "Synthesized quality alerts suppressed by timestamp dedup",
		},
	)

	// HTTP API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawatch_core_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aquawatch_core_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Consumer-facing metrics
	SnapshotSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aquawatch_core_snapshot_subscribers",
			Help: "Number of consumers attached to the snapshot stream",
		},
	)
)

// RecordStreamState maps a connection state name to its gauge value.
func RecordStreamState(channel, state string) {
	var v float64
	switch state {
	case "connecting":
		v = 1
	case "open":
		v = 2
	}
	StreamConnectionState.WithLabelValues(channel).Set(v)
}
