// Package metrics exposes sigma's Prometheus instruments.
//
// All methods are safe to call on a nil *Metrics, so components work
// unchanged when metrics are not wired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceName is the AppContext service key for *Metrics.
const ServiceName = "metrics"

const namespace = "sigma"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	messages        prometheus.Counter
	completions     *prometheus.CounterVec
	completionTime  prometheus.Histogram
	pendingThoughts prometheus.Counter
	persistErrors   prometheus.Counter
	sessions        prometheus.Gauge
	webhooks        *prometheus.CounterVec
	inboxDropped    prometheus.Counter
}

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound user messages handled.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion calls by outcome.",
		}, []string{"outcome"}),
		completionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_seconds",
			Help:      "Latency of completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		pendingThoughts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_thoughts_total",
			Help:      "Messages held back as pending thoughts.",
		}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Session writes that failed.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions held in memory.",
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by source and outcome.",
		}, []string{"source", "outcome"}),
		inboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_dropped_total",
			Help:      "Inbound messages rejected because the router inbox was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.completions,
		m.completionTime,
		m.pendingThoughts,
		m.persistErrors,
		m.sessions,
		m.webhooks,
		m.inboxDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MessageReceived counts one inbound message.
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

// ObserveCompletion records a completion call's outcome and latency.
func (m *Metrics) ObserveCompletion(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.completionTime.Observe(d.Seconds())
}

// PendingThoughtStored counts a message held back by the follow-up heuristic.
func (m *Metrics) PendingThoughtStored() {
	if m == nil {
		return
	}
	m.pendingThoughts.Inc()
}

// PersistFailed counts a failed session write.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

// SetSessions sets the in-memory session gauge.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// WebhookReceived counts a webhook delivery. outcome is "ok", "rejected"
// or "error".
func (m *Metrics) WebhookReceived(source, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(source, outcome).Inc()
}

// InboxDropped counts a message the router could not queue.
func (m *Metrics) InboxDropped() {
	if m == nil {
		return
	}
	m.inboxDropped.Inc()
}
