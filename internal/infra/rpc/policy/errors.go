package policy

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrPermanent matches failures that are never retried.
	ErrPermanent = errors.New("permanent remote failure")
	// ErrTransient matches failures that are eligible for retry.
	ErrTransient = errors.New("transient remote failure")
	// ErrBudgetExhausted matches a give-up caused by the elapsed-time budget.
	ErrBudgetExhausted = errors.New("retry budget exhausted")
)

// RemoteError is a classified remote call failure.
type RemoteError struct {
	Code      codes.Code
	Message   string
	Permanent bool
}

func (e *RemoteError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s remote failure: code = %s desc = %s", kind, e.Code, e.Message)
}

// Is matches ErrPermanent or ErrTransient according to the classification.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrPermanent:
		return e.Permanent
	case ErrTransient:
		return !e.Permanent
	}
	return false
}

// GRPCStatus lets status.FromError and status.Code see the original code.
func (e *RemoteError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// BudgetExhaustedError is returned when a transient failure arrives after the
// generator's elapsed-time budget is spent.
type BudgetExhaustedError struct {
	Elapsed time.Duration
	Budget  time.Duration
	Last    error
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %s (budget %s): %v", e.Elapsed, e.Budget, e.Last)
}

func (e *BudgetExhaustedError) Is(target error) bool {
	return target == ErrBudgetExhausted
}

func (e *BudgetExhaustedError) Unwrap() error {
	return e.Last
}
