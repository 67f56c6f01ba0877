package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deusflow/newsposter/internal/metrics"
)

func TestHealthHandler(t *testing.T) {
	old := metrics.Global
	t.Cleanup(func() { metrics.Global = old })

	metrics.Global = metrics.New()
	metrics.Global.SetLastRun(time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["last_run"] != "2026-10-16T08:00:00Z" {
		t.Errorf("body = %v", body)
	}

	metrics.Global.SetError("ledger unavailable", time.Now())
	rec = httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	old := metrics.Global
	t.Cleanup(func() { metrics.Global = old })

	metrics.Global = metrics.New()
	metrics.Global.IncrementPublished("poll")

	rec := httptest.NewRecorder()
	metricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["posts_published"] != float64(1) {
		t.Errorf("posts_published = %v", body["posts_published"])
	}
}
