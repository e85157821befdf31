// Package health serves liveness, per-service health and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/johnyburd/autbot/internal/infra/rpc/provider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SystemStatus represents the overall health state of the process.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report is the detailed health response.
type Report struct {
	Status   SystemStatus                     `json:"status"`
	Services map[string]provider.HealthStatus `json:"services"`
}

// Source lists the providers whose health is reported.
type Source interface {
	Providers() []provider.Provider
}

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	source Source
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(source Source, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		source: source,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler exposes the mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Check builds a report; any unavailable service degrades the status and
// all of them being unavailable makes it critical.
func (s *Server) Check() Report {
	providers := s.source.Providers()
	report := Report{
		Status:   StatusHealthy,
		Services: make(map[string]provider.HealthStatus, len(providers)),
	}

	down := 0
	for _, p := range providers {
		h := p.GetHealth()
		report.Services[p.GetName()] = h
		if !h.Available {
			down++
		}
	}
	switch {
	case len(providers) > 0 && down == len(providers):
		report.Status = StatusCritical
	case down > 0:
		report.Status = StatusDegraded
	}
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.Check()

	response := map[string]string{"status": string(report.Status)}
	w.Header().Set("Content-Type", "application/json")

	if report.Status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.Check()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
