package backoff

import "time"

// Clock supplies wall-clock time to a Generator.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(g *Generator) {
		if c != nil {
			g.clock = c
		}
	}
}

// Generator hands out successive intervals for a single call sequence.
// It is not safe for concurrent use; each call sequence owns its own.
type Generator struct {
	spec  Spec
	state State
	clock Clock
}

// NewGenerator builds a generator whose elapsed-time budget starts now.
func NewGenerator(spec Spec, opts ...Option) *Generator {
	g := &Generator{
		spec:  spec,
		clock: SystemClock,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.state = spec.Start(g.clock.Now())
	return g
}

// Build is shorthand for NewGenerator(s, opts...).
func (s Spec) Build(opts ...Option) *Generator {
	return NewGenerator(s, opts...)
}

// NextInterval returns the interval to wait before the next attempt, or
// false once the elapsed budget is spent.
func (g *Generator) NextInterval() (time.Duration, bool) {
	interval, next, ok := g.spec.Next(g.state, g.clock.Now())
	g.state = next
	return interval, ok
}

// Elapsed is the wall-clock time since the generator was built or reset.
func (g *Generator) Elapsed() time.Duration {
	return g.clock.Now().Sub(g.state.Started)
}

// Spec returns the specification the generator was built from.
func (g *Generator) Spec() Spec {
	return g.spec
}

// State returns a copy of the current schedule state.
func (g *Generator) State() State {
	return g.state
}

// Reset restarts the schedule and its elapsed-time budget.
func (g *Generator) Reset() {
	g.state = g.spec.Start(g.clock.Now())
}

// Clone returns an independent generator with the same spec, clock and state.
func (g *Generator) Clone() *Generator {
	c := *g
	return &c
}
