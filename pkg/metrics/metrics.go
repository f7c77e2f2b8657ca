// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GatewayRequestsTotal tracks upstream chat gateway calls by outcome.
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total upstream chat gateway requests",
		},
		[]string{"provider", "status"},
	)

	// StreamDuration tracks how long a streamed chat turn took.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_stream_duration_seconds",
			Help:    "Chat turn streaming duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "outcome"},
	)

	// StreamCharsTotal tracks assembled answer characters.
	StreamCharsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stream_chars_total",
			Help: "Total answer characters assembled from upstream streams",
		},
		[]string{"provider"},
	)

	// StreamFramesSkipped tracks data lines that did not decode into a known frame.
	StreamFramesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stream_frames_skipped_total",
			Help: "Upstream data lines skipped as unrecognized or malformed",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// SearchesTotal tracks executed searches.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total searches executed",
		},
		[]string{"language"},
	)

	// SearchResults tracks the result count per search.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// SuggestionsTotal tracks suggestion lookups by outcome.
	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestions_total",
			Help: "Total suggestion lookups",
		},
		[]string{"outcome"},
	)

	// AnalyticsPersistFailures tracks failed analytics reads and writes.
	AnalyticsPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_analytics_persist_failures_total",
			Help: "Search analytics load/save failures",
		},
		[]string{"op"},
	)

	// ConversationsSaved tracks conversation upserts.
	ConversationsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_saved_total",
			Help: "Total conversation saves",
		},
	)

	// MessagesTotal tracks total messages appended to conversations.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStream records metrics for a finished chat turn stream.
func RecordStream(provider, outcome string, duration float64, chars int) {
	StreamDuration.WithLabelValues(provider, outcome).Observe(duration)
	StreamCharsTotal.WithLabelValues(provider).Add(float64(chars))
}

// RecordSearch records metrics for an executed search.
func RecordSearch(language string, results int) {
	SearchesTotal.WithLabelValues(language).Inc()
	SearchResults.Observe(float64(results))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
