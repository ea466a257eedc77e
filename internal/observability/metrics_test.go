package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/leavekeeper/leavekeeper/internal/jobs"
)

func TestMetricsHandlerExposesSweepMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveSweep("start_sweep", 120*time.Millisecond)
	metrics.IncTransition("start_sweep")
	metrics.IncFailure("end_sweep", "transient")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `leavekeeper_sweep_runs_total{task="start_sweep"} 1`) {
		t.Fatalf("expected sweep run counter, got: %s", body)
	}
	if !strings.Contains(body, `leavekeeper_transitions_total{task="start_sweep"} 1`) {
		t.Fatalf("expected transition counter, got: %s", body)
	}
	if !strings.Contains(body, `leavekeeper_sweep_failures_total{kind="transient",task="end_sweep"} 1`) {
		t.Fatalf("expected failure counter, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "leavekeeper_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "leavekeeper_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestMetricsHandlerExposesNotifyDropCounter(t *testing.T) {
	metrics := NewMetrics()
	metrics.IncNotifyDropped()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rr.Body.String(), "leavekeeper_notify_dropped_total 1") {
		t.Fatalf("expected notify drop counter, got: %s", rr.Body.String())
	}
}

func TestRegistererServesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jm := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jm.Track("start_sweep").End(nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, `leavekeeper_jobs_total{job="start_sweep",status="success"} 1`) {
		t.Fatalf("expected job run counter on served output, got: %s", body)
	}
	if !strings.Contains(body, `leavekeeper_job_duration_seconds_count{job="start_sweep"} 1`) {
		t.Fatalf("expected job duration histogram on served output, got: %s", body)
	}
}
