// Package metrics exposes Prometheus counters for the HTTP servers and
// their upstream calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry, so several servers in one process (or tests)
// never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.CounterVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "toolbelt",
				Name:      "http_requests_total",
				Help:      "HTTP requests by app, route and status.",
			},
			[]string{"app", "route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "toolbelt",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by app and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"app", "route"},
		),
		upstream: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "toolbelt",
				Name:      "upstream_requests_total",
				Help:      "Outbound API calls by service and outcome.",
			},
			[]string{"service", "outcome"},
		),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.upstream,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records every request routed by chi under app
func (m *Metrics) Middleware(app string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.requests.WithLabelValues(app, route, r.Method, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(app, route).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveUpstream counts one outbound call; it fits httpclient.Observer
func (m *Metrics) ObserveUpstream(service string, status int, err error) {
	m.upstream.WithLabelValues(service, Outcome(status, err)).Inc()
}

// Outcome classifies a call as ok, 4xx, 5xx or error
func Outcome(status int, err error) string {
	switch {
	case err != nil:
		return "error"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
