package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Consumption outcomes recorded by ticket_consumptions_total.
const (
	OutcomeClaimed       = "claimed"
	OutcomeNoTicket      = "no_ticket"
	OutcomeOwnerNotFound = "owner_not_found"
	OutcomeError         = "error"
)

// Metrics owns the service's Prometheus registry and collectors.
type Metrics struct {
	registry        *prometheus.Registry
	ticketsIssued   prometheus.Counter
	consumptions    *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ticketsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets persisted by issuance",
		}),
		consumptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_consumptions_total",
			Help: "Consumption attempts by outcome",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordRequest observes one served request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordIssued adds n issued tickets.
func (m *Metrics) RecordIssued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ticketsIssued.Add(float64(n))
}

// RecordConsumption counts a consumption attempt with the given outcome.
func (m *Metrics) RecordConsumption(outcome string) {
	if m == nil {
		return
	}
	m.consumptions.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
