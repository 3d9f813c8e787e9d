// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's collectors. A nil *Metrics is valid and
// records nothing, so packages can be used without wiring metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GateDecisionsTotal *prometheus.CounterVec
	SeedRunsTotal      *prometheus.CounterVec
	SeededRowsTotal    *prometheus.CounterVec
	MutationsTotal     *prometheus.CounterVec
	AuditEventsTotal   *prometheus.CounterVec
	CacheLookupsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratagrc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_gate_decisions_total",
				Help: "Authorization gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		SeedRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_seed_runs_total",
				Help: "Seeding routine invocations by kind and result",
			},
			[]string{"kind", "result"},
		),
		SeededRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_seeded_rows_total",
				Help: "Rows inserted by seeding routines",
			},
			[]string{"kind"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_mutations_total",
				Help: "Mutation action results",
			},
			[]string{"action", "result"},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_audit_events_total",
				Help: "Audit events by outcome (queued, written, dropped, failed)",
			},
			[]string{"outcome"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratagrc_view_cache_lookups_total",
				Help: "View cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GateDecisionsTotal,
		m.SeedRunsTotal,
		m.SeededRowsTotal,
		m.MutationsTotal,
		m.AuditEventsTotal,
		m.CacheLookupsTotal,
	)
	return m
}

// Registry exposes the underlying registry (for tests and custom collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gate counts an authorization gate outcome.
func (m *Metrics) Gate(outcome string) {
	if m == nil {
		return
	}
	m.GateDecisionsTotal.WithLabelValues(outcome).Inc()
}

// Seed counts a seeding run and the rows it created.
func (m *Metrics) Seed(kind, result string, created int) {
	if m == nil {
		return
	}
	m.SeedRunsTotal.WithLabelValues(kind, result).Inc()
	if created > 0 {
		m.SeededRowsTotal.WithLabelValues(kind).Add(float64(created))
	}
}

// Mutation counts a mutation action result ("ok", "invalid", "error").
func (m *Metrics) Mutation(action, result string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(action, result).Inc()
}

// Audit counts an audit pipeline outcome.
func (m *Metrics) Audit(outcome string) {
	if m == nil {
		return
	}
	m.AuditEventsTotal.WithLabelValues(outcome).Inc()
}

// CacheLookup counts a view cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies labeled by chi route
// pattern, which keeps slugs and ids out of label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
