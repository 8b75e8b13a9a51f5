// Package observability wires Prometheus instrumentation for the HTTP
// surface, the import runner, and the change notifier.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide instrument set backed by its own registry.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	importOutcomes   *prometheus.CounterVec
	eventsPublished  prometheus.Counter
	eventSubscribers prometheus.Gauge
}

// New builds a Metrics set with a dedicated registry including the standard
// Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campuscore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route, and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		importOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "imports",
			Name:      "jobs_total",
			Help:      "Import jobs finished, by terminal status.",
		}, []string{"status"}),
		eventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Change events fanned out to subscribers.",
		}),
		eventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campuscore",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Currently connected change event subscribers.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.importOutcomes,
		m.eventsPublished,
		m.eventSubscribers,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ImportFinished counts a terminal import job status.
func (m *Metrics) ImportFinished(status string) {
	m.importOutcomes.WithLabelValues(status).Inc()
}

// EventPublished counts one fan-out to a subscriber.
func (m *Metrics) EventPublished() { m.eventsPublished.Inc() }

// SubscriberAdded tracks a new event subscriber.
func (m *Metrics) SubscriberAdded() { m.eventSubscribers.Inc() }

// SubscriberRemoved tracks a departed event subscriber.
func (m *Metrics) SubscriberRemoved() { m.eventSubscribers.Dec() }
