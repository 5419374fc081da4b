package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qrave1/eyeson-go/internal/application/metric"
)

func TestMetricsServer(t *testing.T) {
	metric.RecordWebhookReceived("room_update")

	e := NewMetrics(nil)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status %d", path, rec.Code)
		}
		if path == "/metrics" && !strings.Contains(rec.Body.String(), "eyeson_webhooks_received_total") {
			t.Error("metrics output missing eyeson_webhooks_received_total")
		}
	}
}

func TestMetricsServerHealthReportsConnections(t *testing.T) {
	metric.IncrementObserverConnections()
	defer metric.DecrementObserverConnections()

	rec := httptest.NewRecorder()
	NewMetrics(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.ObserverConnections != metric.ObserverConnections() {
		t.Errorf("health = %+v, want %d connections", resp, metric.ObserverConnections())
	}
}

func TestMetricsServerReady(t *testing.T) {
	var calls int
	e := NewMetrics(func(ctx context.Context) error {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Error("ready check has no deadline")
		}
		if calls > 1 {
			return errors.New("eyeson: 401")
		}
		return nil
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("first /ready status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "eyeson: 401") {
		t.Errorf("failing /ready = %d %s", rec.Code, rec.Body.String())
	}
}
