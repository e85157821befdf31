// Package retry runs remote operations under the resilient call policy,
// waiting out Retry decisions and giving up as the policy dictates.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/johnyburd/autbot/internal/core/backoff"
	"github.com/johnyburd/autbot/internal/infra/rpc/policy"
)

// Observer receives call sequence events, typically for metrics.
type Observer interface {
	Attempt(operation string)
	Failure(operation, code, classification string)
	Backoff(operation string, wait time.Duration)
	GiveUp(operation, reason string)
}

type noopObserver struct{}

func (noopObserver) Attempt(string)                 {}
func (noopObserver) Failure(string, string, string) {}
func (noopObserver) Backoff(string, time.Duration)  {}
func (noopObserver) GiveUp(string, string)          {}

// Executor runs operations with a fresh backoff generator per call sequence.
// It is safe for concurrent use; sequences never share state.
type Executor struct {
	spec     backoff.Spec
	clock    backoff.Clock
	observer Observer
	logger   *slog.Logger
	wait     func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the logger used for attempt and give-up messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock handed to each generator.
func WithClock(c backoff.Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithWait replaces the function that suspends between attempts.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if wait != nil {
			e.wait = wait
		}
	}
}

// New creates an Executor for spec.
func New(spec backoff.Spec, opts ...Option) *Executor {
	e := &Executor{
		spec:     spec,
		clock:    backoff.SystemClock,
		observer: noopObserver{},
		logger:   slog.Default(),
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Spec returns the backoff specification used for each sequence.
func (e *Executor) Spec() backoff.Spec {
	return e.spec
}

// Do runs op until it succeeds or the policy gives up.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := Call(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Call runs op until it succeeds or the policy gives up and returns the
// value of the successful attempt.
func Call[T any](
	ctx context.Context,
	e *Executor,
	name string,
	op func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	seq := policy.NewSequence(backoff.NewGenerator(e.spec, backoff.WithClock(e.clock)))
	log := e.logger.With("operation", name, "sequence", uuid.NewString())

	for {
		if err := seq.Begin(); err != nil {
			return zero, err
		}
		e.observer.Attempt(name)

		result, err := op(ctx)
		outcome := policy.OutcomeFromError(err)
		if outcome.OK {
			if _, recErr := seq.Record(outcome); recErr != nil {
				return zero, recErr
			}
			if seq.Attempts() > 1 {
				log.Debug("Call succeeded after retry", "attempts", seq.Attempts())
			}
			return result, nil
		}

		class := policy.ClassifyOutcome(outcome)
		e.observer.Failure(name, outcome.Code.String(), class.String())

		// The caller abandoned the sequence; the generator is simply dropped.
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.observer.GiveUp(name, "canceled")
			return zero, fmt.Errorf("%s: %w (last failure: %v)", name, ctxErr, outcome.Err())
		}

		decision, recErr := seq.Record(outcome)
		if recErr != nil {
			return zero, recErr
		}
		if decision.GaveUp() {
			reason := class.String()
			if class == policy.Transient {
				reason = "budget_exhausted"
			}
			e.observer.GiveUp(name, reason)
			log.Warn("Giving up on remote call",
				"attempts", seq.Attempts(),
				"reason", reason,
				"error", decision.Err,
			)
			return zero, fmt.Errorf("%s: %w", name, decision.Err)
		}

		log.Debug("Retrying remote call",
			"attempt", seq.Attempts(),
			"code", outcome.Code.String(),
			"wait", decision.After,
		)
		e.observer.Backoff(name, decision.After)

		if err := e.wait(ctx, decision.After); err != nil {
			e.observer.GiveUp(name, "canceled")
			return zero, fmt.Errorf("%s: %w (last failure: %v)", name, err, outcome.Err())
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
