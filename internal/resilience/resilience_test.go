package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"caprun/internal/capability"
)

// newFastExecutor returns an executor whose sleeps complete instantly while
// recording the requested durations.
func newFastExecutor(cfg Config) (*Executor, *[]time.Duration) {
	e := New(cfg)
	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return e, &slept
}

func TestRateLimitedThenSuccess(t *testing.T) {
	e, _ := newFastExecutor(Config{MaxAttempts: 3, BackoffBase: time.Millisecond})

	calls := 0
	value, attempts, err := e.Do(context.Background(), "llm.complete", func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, &RateLimitError{Provider: "llm"}
		}
		return "done", nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if value != "done" {
		t.Errorf("got value %v, want done", value)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestRateLimitExhaustion(t *testing.T) {
	e, _ := newFastExecutor(Config{MaxAttempts: 2, BackoffBase: time.Millisecond})

	calls := 0
	_, attempts, err := e.Do(context.Background(), "llm.complete", func(ctx context.Context) (any, error) {
		calls++
		return nil, &RateLimitError{Provider: "llm"}
	})

	if !errors.Is(err, capability.ErrRateLimitExceeded) {
		t.Fatalf("got %v, want ErrRateLimitExceeded", err)
	}
	if attempts != 2 || calls != 2 {
		t.Errorf("attempts=%d calls=%d, want 2/2", attempts, calls)
	}
}

func TestRetryAfterHintUsed(t *testing.T) {
	e, slept := newFastExecutor(Config{MaxAttempts: 2, BackoffBase: time.Second})

	hint := 7 * time.Second
	calls := 0
	_, _, _ = e.Do(context.Background(), "rest.get", func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, &RateLimitError{Provider: "rest", RetryAfter: hint}
		}
		return "ok", nil
	})

	if len(*slept) != 1 || (*slept)[0] != hint {
		t.Errorf("slept %v, want [%v]", *slept, hint)
	}
}

func TestTransientExhaustion(t *testing.T) {
	e, slept := newFastExecutor(Config{MaxAttempts: 3, BackoffBase: 100 * time.Millisecond, BackoffMax: time.Minute})

	_, attempts, err := e.Do(context.Background(), "search", func(ctx context.Context) (any, error) {
		return nil, errors.New("connection reset")
	})

	if !errors.Is(err, capability.ErrTransientFailure) {
		t.Fatalf("got %v, want ErrTransientFailure", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
	// Exponential: 100ms then 200ms (no jitter configured).
	if len(*slept) != 2 || (*slept)[0] != 100*time.Millisecond || (*slept)[1] != 200*time.Millisecond {
		t.Errorf("backoff schedule %v, want [100ms 200ms]", *slept)
	}
}

func TestPermanentNoRetry(t *testing.T) {
	tests := []error{
		capability.ErrAuthentication,
		capability.ErrNotFound,
		capability.ErrValidation,
	}

	for _, perm := range tests {
		e, _ := newFastExecutor(Config{MaxAttempts: 5, BackoffBase: time.Millisecond})
		calls := 0
		_, attempts, err := e.Do(context.Background(), "op", func(ctx context.Context) (any, error) {
			calls++
			return nil, perm
		})
		if !errors.Is(err, perm) {
			t.Errorf("got %v, want %v propagated", err, perm)
		}
		if calls != 1 || attempts != 1 {
			t.Errorf("%v: calls=%d attempts=%d, want 1/1", perm, calls, attempts)
		}
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	e := New(Config{MaxAttempts: 5, BackoffBase: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, _, err := e.Do(ctx, "op", func(ctx context.Context) (any, error) {
		calls++
		cancel()
		return nil, errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("made %d calls after cancel, want 1", calls)
	}
}

func TestBackoffCap(t *testing.T) {
	e := New(Config{MaxAttempts: 10, BackoffBase: time.Second, BackoffMax: 4 * time.Second})
	if d := e.backoff(8); d != 4*time.Second {
		t.Errorf("backoff(8) = %v, want capped 4s", d)
	}
}
