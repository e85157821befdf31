// Package policy decides what to do with the outcome of a remote call:
// classify failures as permanent or transient and turn a transient failure
// into a retry interval drawn from a backoff generator.
//
// The package never logs, sleeps or performs I/O. Waiting out a Retry
// decision is the caller's job.
package policy

import (
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classification tells whether a failed call is worth retrying.
type Classification int

const (
	Transient Classification = iota
	Permanent
)

func (c Classification) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Outcome is the result of a single remote call attempt.
type Outcome struct {
	OK      bool
	Code    codes.Code
	Message string
}

// Success is the outcome of a call that returned a value.
func Success() Outcome {
	return Outcome{OK: true, Code: codes.OK}
}

// Failure is the outcome of a call that failed with code.
func Failure(code codes.Code, message string) Outcome {
	return Outcome{Code: code, Message: message}
}

// OutcomeFromError maps a transport error onto an Outcome. A nil error is a
// success; errors without a gRPC status become codes.Unknown, except context
// errors which keep their Canceled / DeadlineExceeded code.
func OutcomeFromError(err error) Outcome {
	if err == nil {
		return Success()
	}
	if st, ok := status.FromError(err); ok {
		return Failure(st.Code(), st.Message())
	}
	st := status.FromContextError(err)
	return Failure(st.Code(), st.Message())
}

// Err converts a failed outcome into a *RemoteError carrying its
// classification. It returns nil for a success.
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	return &RemoteError{
		Code:      o.Code,
		Message:   o.Message,
		Permanent: Classify(o.Code) == Permanent,
	}
}

// permanentCodes denote a broken request or a broken remote component.
//
// codes.Unavailable is normally the canonical transient condition; it is kept
// here on purpose and should be revisited together with the callers' budgets.
var permanentCodes = map[codes.Code]struct{}{
	codes.Unknown:     {},
	codes.Internal:    {},
	codes.Unavailable: {},
}

// Classify maps a failure status code to a Classification.
func Classify(code codes.Code) Classification {
	if _, ok := permanentCodes[code]; ok {
		return Permanent
	}
	return Transient
}

// ClassifyOutcome classifies a failed outcome. Successes are never retried
// and should be handled before this is called; they classify as Transient.
func ClassifyOutcome(o Outcome) Classification {
	return Classify(o.Code)
}

// Decision is either Retry(After) or GiveUp(Err).
type Decision struct {
	// Retry is true when the caller should wait After and try again.
	Retry bool
	After time.Duration
	// Err is the final error when Retry is false.
	Err error
}

// GaveUp reports whether the decision ends the call sequence.
func (d Decision) GaveUp() bool {
	return !d.Retry
}

// Decide classifies a failed outcome and consults gen for the next interval.
// A permanent failure gives up without touching the generator.
func Decide(gen *backoff.Generator, o Outcome) Decision {
	failure := o.Err()
	if ClassifyOutcome(o) == Permanent {
		return Decision{Err: failure}
	}

	after, ok := gen.NextInterval()
	if !ok {
		return Decision{
			Err: &BudgetExhaustedError{
				Elapsed: gen.Elapsed(),
				Budget:  gen.Spec().MaxElapsed,
				Last:    failure,
			},
		}
	}
	return Decision{Retry: true, After: after}
}
