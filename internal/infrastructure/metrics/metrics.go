package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Turn counters by outcome (completed, error, clarification)
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "turns_total",
			Help:      "Total conversational turns processed",
		},
		[]string{"outcome"},
	)

	// Engine invocation duration
	EngineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "engine_duration_seconds",
			Help:      "Reasoning engine invocation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Stream events emitted, by event name
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "stream_events_total",
			Help:      "Total SSE events emitted",
		},
		[]string{"event"},
	)

	// Background persistence outcomes
	PersistTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "persist_tasks_total",
			Help:      "Background message persistence outcomes",
		},
		[]string{"status"},
	)

	// Persistence queue depth gauge
	PersistQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "companion",
			Subsystem: "chat_api",
			Name:      "persist_queue_depth",
			Help:      "Background persistence queue depth",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordTurn records one completed turn by outcome.
func RecordTurn(outcome string, engineSec float64) {
	TurnsTotal.WithLabelValues(outcome).Inc()
	EngineDuration.Observe(engineSec)
}

// RecordStreamEvent counts one emitted SSE event.
func RecordStreamEvent(event string) {
	StreamEventsTotal.WithLabelValues(event).Inc()
}

// RecordPersistTask records a background persistence outcome.
func RecordPersistTask(status string) {
	PersistTasksTotal.WithLabelValues(status).Inc()
}

// SetPersistQueueDepth sets the current persistence queue depth.
func SetPersistQueueDepth(depth int) {
	PersistQueueDepth.Set(float64(depth))
}
