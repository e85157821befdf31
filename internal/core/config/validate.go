package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/johnyburd/autbot/internal/core/backoff"
)

// FieldError pins a validation failure to a dotted field path.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "text"}
)

// Validate checks the fields the loader owns: both backoff specifications,
// the logging options and non-negative sizes. Empty secrets and service
// addresses are left for the code that uses them.
func (c Configuration) Validate() error {
	if err := validateBackoff("initialization_backoff", c.InitializationBackoff); err != nil {
		return err
	}
	if err := validateBackoff("rpc_backoff", c.RPCBackoff); err != nil {
		return err
	}
	if c.FeatureGateBatchCheckSize < 0 {
		return &FieldError{
			Field: "feature_gate_batch_check_size",
			Err:   fmt.Errorf("must not be negative, got %d", c.FeatureGateBatchCheckSize),
		}
	}
	if c.GatewayQueue.ConnectionPool.MaxSize < 0 {
		return &FieldError{
			Field: "gateway_queue.connection_pool.max_size",
			Err:   fmt.Errorf("must not be negative, got %d", c.GatewayQueue.ConnectionPool.MaxSize),
		}
	}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return &FieldError{
			Field: "logging.level",
			Err:   fmt.Errorf("must be one of %v, got %q", validLevels, c.Logging.Level),
		}
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		return &FieldError{
			Field: "logging.format",
			Err:   fmt.Errorf("must be one of %v, got %q", validFormats, c.Logging.Format),
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &FieldError{
			Field: "server.port",
			Err:   fmt.Errorf("out of range: %d", c.Server.Port),
		}
	}
	return nil
}

func validateBackoff(group string, spec backoff.Spec) error {
	err := spec.Validate()
	if err == nil {
		return nil
	}
	var specErr *backoff.SpecError
	if errors.As(err, &specErr) {
		return &FieldError{Field: group + "." + specErr.Field, Err: errors.New(specErr.Reason)}
	}
	return &FieldError{Field: group, Err: err}
}
