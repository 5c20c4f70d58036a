package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BoardMetrics records mutation, bus and realtime gateway activity.
type BoardMetrics struct {
	mutationDuration *prometheus.HistogramVec
	mutationFailure  *prometheus.CounterVec
	publishFailure   *prometheus.CounterVec
	connections      prometheus.Gauge
	delivered        *prometheus.CounterVec
	dropped          *prometheus.CounterVec
}

// NewBoardMetrics registers the board metrics on the provided registerer. A
// nil registerer yields a no-op recorder.
func NewBoardMetrics(reg prometheus.Registerer) *BoardMetrics {
	if reg == nil {
		return &BoardMetrics{}
	}
	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workboard_mutation_duration_seconds",
		Help:    "Duration of work board mutations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	mutationFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workboard_mutation_failure",
		Help: "Failed work board mutations by error code.",
	}, []string{"op", "code"})
	publishFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workboard_publish_failure",
		Help: "Board events that could not be published after commit.",
	}, []string{"event"})
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workboard_realtime_connections",
		Help: "Open realtime connections.",
	})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workboard_realtime_delivered",
		Help: "Board events queued to realtime connections.",
	}, []string{"event"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workboard_realtime_dropped",
		Help: "Board events dropped because a connection buffer was full.",
	}, []string{"event"})
	reg.MustRegister(mutationDuration, mutationFailure, publishFailure, connections, delivered, dropped)
	return &BoardMetrics{
		mutationDuration: mutationDuration,
		mutationFailure:  mutationFailure,
		publishFailure:   publishFailure,
		connections:      connections,
		delivered:        delivered,
		dropped:          dropped,
	}
}

// ObserveMutation records the duration for the named operation.
func (m *BoardMetrics) ObserveMutation(op string, duration time.Duration) {
	if m == nil || m.mutationDuration == nil {
		return
	}
	m.mutationDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncMutationFailure counts a failed operation under its error code.
func (m *BoardMetrics) IncMutationFailure(op, code string) {
	if m == nil || m.mutationFailure == nil {
		return
	}
	m.mutationFailure.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

// IncPublishFailure counts an event the bus rejected.
func (m *BoardMetrics) IncPublishFailure(event string) {
	if m == nil || m.publishFailure == nil {
		return
	}
	m.publishFailure.WithLabelValues(normalizeLabel(event)).Inc()
}

// ConnectionOpened increments the open connection gauge.
func (m *BoardMetrics) ConnectionOpened() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *BoardMetrics) ConnectionClosed() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Dec()
}

// IncDelivered counts an event queued to one connection.
func (m *BoardMetrics) IncDelivered(event string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDropped counts an event dropped for one connection.
func (m *BoardMetrics) IncDropped(event string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
