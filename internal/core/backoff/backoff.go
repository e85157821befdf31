// Package backoff turns a declarative exponential backoff specification into
// a schedule of retry intervals bounded by a wall-clock budget.
//
// The schedule is computed by Spec.Next over an explicit State value, so a
// caller can copy, inspect or replay a sequence without hidden mutation.
// Generator wraps a Spec, a State and a Clock for the common case of one
// call sequence driving its own schedule.
package backoff

import (
	"fmt"
	"time"
)

// Spec controls an exponential backoff and can be loaded from a config file.
type Spec struct {
	// InitialInterval is the first interval handed out.
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	// MaxInterval caps the interval growth.
	MaxInterval time.Duration `mapstructure:"max_interval"`
	// MaxElapsed is the wall-clock budget measured from generator construction.
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
	// Multiplier is applied to the current interval after each hand-out.
	Multiplier float64 `mapstructure:"multiplier"`
}

// SpecError reports the first field of a Spec that breaks an invariant.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validate checks initial > 0, multiplier >= 1, max >= initial and a
// positive elapsed budget.
func (s Spec) Validate() error {
	if s.InitialInterval <= 0 {
		return &SpecError{Field: "initial_interval", Reason: "must be greater than zero"}
	}
	if s.Multiplier < 1.0 {
		return &SpecError{
			Field:  "multiplier",
			Reason: fmt.Sprintf("must be >= 1.0, got %g", s.Multiplier),
		}
	}
	if s.MaxInterval < s.InitialInterval {
		return &SpecError{
			Field:  "max_interval",
			Reason: fmt.Sprintf("must be >= initial_interval (%s), got %s", s.InitialInterval, s.MaxInterval),
		}
	}
	if s.MaxElapsed <= 0 {
		return &SpecError{Field: "max_elapsed", Reason: "must be greater than zero"}
	}
	return nil
}

// State is the mutable part of a backoff schedule.
type State struct {
	// Current is the interval the next call to Next hands out.
	Current time.Duration
	// Started is when the schedule began; elapsed time is measured from here.
	Started time.Time
}

// Start returns the initial state of a schedule beginning at now.
func (s Spec) Start(now time.Time) State {
	return State{
		Current: s.InitialInterval,
		Started: now,
	}
}

// Next returns the interval to wait and the state for the following call.
// ok is false once more than MaxElapsed has passed since st.Started; the
// state is returned unchanged in that case.
func (s Spec) Next(st State, now time.Time) (interval time.Duration, next State, ok bool) {
	if now.Sub(st.Started) > s.MaxElapsed {
		return 0, st, false
	}

	interval = min(st.Current, s.MaxInterval)

	// Compare in float space so a large multiplier cannot overflow Duration.
	grown := float64(interval) * s.Multiplier
	if grown >= float64(s.MaxInterval) {
		st.Current = s.MaxInterval
	} else {
		st.Current = time.Duration(grown)
	}

	return interval, st, true
}
