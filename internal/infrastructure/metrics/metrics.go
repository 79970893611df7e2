package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Active streaming connections gauge
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "active_streams",
			Help:      "Currently active streaming sessions",
		},
	)

	// Chunks streamed by message type
	ChunksStreamedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "chunks_streamed_total",
			Help:      "Total chunk envelopes streamed to clients",
		},
		[]string{"message_type"},
	)

	// End-to-end stream duration
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "stream_duration_seconds",
			Help:      "Streaming session duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	// Engine failures
	EngineErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "engine_errors_total",
			Help:      "Total upstream engine call failures",
		},
		[]string{"error_type"},
	)

	// Feedback submissions
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "feedback_total",
			Help:      "Total feedback submissions",
		},
		[]string{"verdict", "status"},
	)

	// Janitor cleanup counter
	ProvisionalChunksDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kassist",
			Subsystem: "chat_api",
			Name:      "provisional_chunks_deleted_total",
			Help:      "Abandoned provisional chunk rows deleted by the janitor",
		},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordChunk records a chunk envelope written to the wire
func RecordChunk(messageType string) {
	ChunksStreamedTotal.WithLabelValues(messageType).Inc()
}

// RecordStreamDuration records a finished streaming session
func RecordStreamDuration(outcome string, durationSec float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	StreamDuration.WithLabelValues(outcome).Observe(durationSec)
}

// RecordEngineError records an upstream engine failure
func RecordEngineError(errorType string) {
	EngineErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordFeedback records a feedback submission attempt
func RecordFeedback(isPositive bool, status string) {
	verdict := "negative"
	if isPositive {
		verdict = "positive"
	}
	FeedbackTotal.WithLabelValues(verdict, status).Inc()
}
