package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	sweepRuns        *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	transitionsTotal *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	notifyDropped    prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leavekeeper_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leavekeeper_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leavekeeper_sweep_runs_total",
		Help: "Completed sweep executions per task.",
	}, []string{"task"})
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leavekeeper_sweep_duration_seconds",
		Help:    "Sweep execution duration per task.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leavekeeper_transitions_total",
		Help: "Committed period status transitions per task.",
	}, []string{"task"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leavekeeper_sweep_failures_total",
		Help: "Per-record sweep failures by task and failure kind.",
	}, []string{"task", "kind"})
	notifyDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leavekeeper_notify_dropped_total",
		Help: "Notifications lost to a failed dedup rollback; they are never resent.",
	})
	registry.MustRegister(requests, duration, sweepRuns, sweepDuration, transitions, failures, notifyDropped)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		sweepRuns:        sweepRuns,
		sweepDuration:    sweepDuration,
		transitionsTotal: transitions,
		failuresTotal:    failures,
		notifyDropped:    notifyDropped,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSweep records one completed sweep execution.
func (m *Metrics) ObserveSweep(task string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(task).Inc()
	m.sweepDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// IncTransition records a committed status transition.
func (m *Metrics) IncTransition(task string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(task).Inc()
}

// IncFailure records a per-record failure of the given kind.
func (m *Metrics) IncFailure(task, kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(task, kind).Inc()
}

// IncNotifyDropped records a notification dropped by a failed dedup rollback.
func (m *Metrics) IncNotifyDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
