package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JanitorMetrics covers reconciliation passes and the lifecycle feed
// consumer.
type JanitorMetrics struct {
	registry *prometheus.Registry

	passesTotal     *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	orphansRemoved  *prometheus.CounterVec
	bytesReclaimed  *prometheus.CounterVec
	corruptedMarked *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
}

func NewJanitorMetrics(service string) *JanitorMetrics {
	registry := prometheus.NewRegistry()

	passesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "passes_total",
			Help:      "Total cleanup passes by outcome.",
		},
		[]string{"service", "outcome"},
	)
	passDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "pass_duration_seconds",
			Help:      "Cleanup pass duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)
	orphansRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "orphans_removed_total",
			Help:      "Total orphaned files removed from storage.",
		},
		[]string{"service"},
	)
	bytesReclaimed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "bytes_reclaimed_total",
			Help:      "Total bytes reclaimed by orphan removal.",
		},
		[]string{"service"},
	)
	corruptedMarked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "corrupted_marked_total",
			Help:      "Total documents marked corrupted because their file is missing.",
		},
		[]string{"service"},
	)
	eventsConsumed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dv",
			Subsystem: "janitor",
			Name:      "lifecycle_events_total",
			Help:      "Total lifecycle feed events consumed by type.",
		},
		[]string{"service", "type"},
	)

	registry.MustRegister(
		passesTotal,
		passDuration,
		orphansRemoved,
		bytesReclaimed,
		corruptedMarked,
		eventsConsumed,
	)

	return &JanitorMetrics{
		registry:        registry,
		passesTotal:     passesTotal,
		passDuration:    passDuration,
		orphansRemoved:  orphansRemoved,
		bytesReclaimed:  bytesReclaimed,
		corruptedMarked: corruptedMarked,
		eventsConsumed:  eventsConsumed,
	}
}

func (m *JanitorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *JanitorMetrics) RecordPass(service, outcome string, duration time.Duration, orphans int, bytes int64, corrupted int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.passesTotal.WithLabelValues(service, outcome).Inc()
	m.passDuration.WithLabelValues(service).Observe(duration.Seconds())
	if orphans > 0 {
		m.orphansRemoved.WithLabelValues(service).Add(float64(orphans))
	}
	if bytes > 0 {
		m.bytesReclaimed.WithLabelValues(service).Add(float64(bytes))
	}
	if corrupted > 0 {
		m.corruptedMarked.WithLabelValues(service).Add(float64(corrupted))
	}
}

func (m *JanitorMetrics) RecordEvent(service, eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsConsumed.WithLabelValues(service, eventType).Inc()
}
