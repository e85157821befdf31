package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnyburd/autbot/internal/infra/metrics"
	"github.com/johnyburd/autbot/internal/infra/rpc/provider"
)

type stubProvider struct {
	*provider.BaseProvider
}

func (s stubProvider) Execute(ctx context.Context, op provider.Operation) (any, error) {
	return nil, nil
}

func (s stubProvider) Close() error { return nil }

func newStub(name string, up bool) provider.Provider {
	base := provider.NewBaseProvider(name)
	if up {
		base.RecordSuccess(0)
	}
	return stubProvider{BaseProvider: base}
}

type stubSource []provider.Provider

func (s stubSource) Providers() []provider.Provider { return s }

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name     string
		source   stubSource
		code     int
		expected SystemStatus
	}{
		{"all up", stubSource{newStub("feature_gate", true), newStub("logs_uptime", true)}, http.StatusOK, StatusHealthy},
		{"one down", stubSource{newStub("feature_gate", true), newStub("logs_uptime", false)}, http.StatusOK, StatusDegraded},
		{"all down", stubSource{newStub("feature_gate", false)}, http.StatusServiceUnavailable, StatusCritical},
		{"no services", stubSource{}, http.StatusOK, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.source, 0)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("status code = %d, want %d", rec.Code, tt.code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body["status"] != string(tt.expected) {
				t.Errorf("status = %q, want %q", body["status"], tt.expected)
			}
		})
	}
}

func TestServer_Detailed(t *testing.T) {
	srv := NewServer(stubSource{newStub("feature_gate", true)}, 0)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if _, ok := report.Services["feature_gate"]; !ok {
		t.Errorf("missing service in report: %+v", report)
	}
}

func TestServer_Metrics(t *testing.T) {
	metrics.NewRecorder("feature_gate").GiveUp("connect", "permanent")

	srv := NewServer(stubSource{}, 0)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gateway_rpc_give_ups_total") {
		t.Error("metrics output missing give-up counter")
	}
}
