package policy

import (
	"errors"
	"fmt"

	"github.com/johnyburd/autbot/internal/core/backoff"
)

// Phase is the state of a call sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttempting
	PhaseRetrying
	PhaseSucceeded
	PhaseGaveUp
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttempting:
		return "attempting"
	case PhaseRetrying:
		return "retrying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseGaveUp:
		return "gave_up"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseGaveUp
}

// ErrSequenceFinished is returned when a finished sequence is driven again.
var ErrSequenceFinished = errors.New("call sequence already finished")

// ErrNotAttempting is returned when an outcome is recorded without a
// preceding Begin.
var ErrNotAttempting = errors.New("call sequence is not attempting")

// Sequence tracks one call sequence through
// Idle -> Attempting -> {Succeeded | Retrying -> Attempting | GaveUp}.
// It owns its generator exclusively.
type Sequence struct {
	gen      *backoff.Generator
	phase    Phase
	attempts int
	last     Decision
}

// NewSequence starts an idle sequence over gen.
func NewSequence(gen *backoff.Generator) *Sequence {
	return &Sequence{gen: gen}
}

// Phase returns the current phase.
func (s *Sequence) Phase() Phase {
	return s.phase
}

// Attempts is the number of attempts begun so far.
func (s *Sequence) Attempts() int {
	return s.attempts
}

// Generator exposes the backoff generator driving the sequence.
func (s *Sequence) Generator() *backoff.Generator {
	return s.gen
}

// Begin moves an idle or retrying sequence to Attempting.
func (s *Sequence) Begin() error {
	switch s.phase {
	case PhaseIdle, PhaseRetrying:
		s.phase = PhaseAttempting
		s.attempts++
		return nil
	case PhaseAttempting:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSequenceFinished, s.phase)
	}
}

// Record applies the outcome of the current attempt and returns the
// decision. A success ends the sequence with a zero Decision whose Err is nil.
func (s *Sequence) Record(o Outcome) (Decision, error) {
	if s.phase.Terminal() {
		return s.last, fmt.Errorf("%w: %s", ErrSequenceFinished, s.phase)
	}
	if s.phase != PhaseAttempting {
		return Decision{}, ErrNotAttempting
	}

	if o.OK {
		s.phase = PhaseSucceeded
		s.last = Decision{}
		return s.last, nil
	}

	d := Decide(s.gen, o)
	if d.Retry {
		s.phase = PhaseRetrying
	} else {
		s.phase = PhaseGaveUp
	}
	s.last = d
	return d, nil
}
