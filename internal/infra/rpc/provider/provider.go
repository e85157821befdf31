// Package provider implements connections to downstream gRPC services.
//
// This package contains:
//   - Provider interface: core abstraction for a downstream service
//   - BaseProvider: health and latency tracking shared by providers
//   - GRPCProvider: a gRPC connection established under the
//     initialization backoff and driven under the RPC backoff
package provider

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// Operation represents an RPC operation to execute against a service.
type Operation struct {
	// Name identifies the operation (e.g., "CheckFeature", "RecordUptime")
	Name string

	// Invoke runs one attempt of the operation on the provider's connection.
	// It usually wraps a generated client call.
	Invoke func(ctx context.Context, conn grpc.ClientConnInterface) (any, error)
}

// Provider defines the core interface for a downstream service.
type Provider interface {
	// GetName returns the service identifier (e.g., "feature_gate")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Execute performs the operation under the RPC retry policy
	Execute(ctx context.Context, op Operation) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	LastError     string        `json:"last_error,omitempty"`
}
