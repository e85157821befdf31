package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"github.com/johnyburd/autbot/internal/infra/rpc/policy"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	attempts int
	failures []string
	waits    []time.Duration
	giveUps  []string
}

func (o *recordingObserver) Attempt(string) { o.attempts++ }
func (o *recordingObserver) Failure(_, code, class string) {
	o.failures = append(o.failures, code+"/"+class)
}
func (o *recordingObserver) Backoff(_ string, d time.Duration) { o.waits = append(o.waits, d) }
func (o *recordingObserver) GiveUp(_, reason string)         { o.giveUps = append(o.giveUps, reason) }

func newTestExecutor(clock *fakeClock, obs *recordingObserver) *Executor {
	spec := backoff.Spec{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      time.Second,
		Multiplier:      2.0,
	}
	return New(spec,
		WithClock(clock),
		WithObserver(obs),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithWait(func(ctx context.Context, d time.Duration) error {
			clock.Advance(d)
			return ctx.Err()
		}),
	)
}

func TestCall_RetriesTransientThenSucceeds(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	obs := &recordingObserver{}
	exec := newTestExecutor(clock, obs)

	calls := 0
	got, err := Call(context.Background(), exec, "GetFeature", func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", status.Error(codes.ResourceExhausted, "slow down")
		}
		return "enabled", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "enabled" {
		t.Errorf("result = %q, want enabled", got)
	}
	if calls != 3 || obs.attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3", calls, obs.attempts)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(obs.waits) != len(want) || obs.waits[0] != want[0] || obs.waits[1] != want[1] {
		t.Errorf("waits = %v, want %v", obs.waits, want)
	}
	if len(obs.giveUps) != 0 {
		t.Errorf("unexpected give ups: %v", obs.giveUps)
	}
}

func TestCall_PermanentFailsOnFirstAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	obs := &recordingObserver{}
	exec := newTestExecutor(clock, obs)

	calls := 0
	err := exec.Do(context.Background(), "Record", func(ctx context.Context) error {
		calls++
		return status.Error(codes.Unavailable, "down")
	})
	if !errors.Is(err, policy.ErrPermanent) {
		t.Fatalf("expected permanent failure, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if status.Code(err) != codes.Unavailable {
		t.Errorf("code = %s, want Unavailable", status.Code(err))
	}
	if len(obs.giveUps) != 1 || obs.giveUps[0] != "permanent" {
		t.Errorf("give ups = %v, want [permanent]", obs.giveUps)
	}
}

func TestCall_BudgetExhausted(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	obs := &recordingObserver{}
	exec := newTestExecutor(clock, obs)

	calls := 0
	err := exec.Do(context.Background(), "Record", func(ctx context.Context) error {
		calls++
		return status.Error(codes.DeadlineExceeded, "timeout")
	})
	if !errors.Is(err, policy.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}
	// Waits 100+200+400 = 700ms, then 800ms brings elapsed to 1.5s.
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if len(obs.giveUps) != 1 || obs.giveUps[0] != "budget_exhausted" {
		t.Errorf("give ups = %v", obs.giveUps)
	}
}

func TestCall_CanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spec := backoff.Spec{
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
		MaxElapsed:      24 * time.Hour,
		Multiplier:      1.0,
	}
	exec := New(spec, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	done := make(chan error, 1)
	go func() {
		done <- exec.Do(ctx, "Record", func(ctx context.Context) error {
			return status.Error(codes.Aborted, "again")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestCall_RealSleep(t *testing.T) {
	spec := backoff.Spec{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		MaxElapsed:      time.Second,
		Multiplier:      2.0,
	}
	exec := New(spec, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	calls := 0
	start := time.Now()
	err := exec.Do(context.Background(), "Record", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Aborted, "again")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected at least 30ms of backoff, got %s", elapsed)
	}
}
