// Package resilience wraps external calls with retry, backoff, and
// rate-limit handling. The executor treats every wrapped call uniformly:
// it may rate-limit (optionally with a reset hint), fail transiently, or
// fail permanently. Permanent failures are never retried.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"caprun/internal/capability"
	"caprun/internal/logging"
)

// RateLimitError indicates the backend returned a rate limit response.
// Callers use errors.As to detect it; RetryAfter carries the backend's reset
// hint when one was provided.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

// Config controls retry behavior.
type Config struct {
	// MaxAttempts caps the total number of call attempts.
	MaxAttempts int

	// BackoffBase is the first retry delay; it doubles each attempt.
	BackoffBase time.Duration

	// BackoffMax caps the computed delay.
	BackoffMax time.Duration

	// JitterFrac adds up to this fraction of random extra delay.
	JitterFrac float64
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		BackoffMax:  30 * time.Second,
		JitterFrac:  0.2,
	}
}

// Call is one attempt against an external backend.
type Call func(ctx context.Context) (any, error)

// Executor retries calls according to its config. It carries no per-call
// state and is safe for concurrent use.
type Executor struct {
	cfg Config

	// sleep is swapped in tests to avoid real waiting. It must honor ctx.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an executor from config.
func New(cfg Config) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	return &Executor{cfg: cfg, sleep: sleepCtx}
}

// Do runs call until it succeeds, fails permanently, or attempts are
// exhausted. It returns the value, the number of attempts made, and the
// final error. Exhaustion yields a typed rate-limit or transient error,
// never a silent default.
func (e *Executor) Do(ctx context.Context, op string, call Call) (any, int, error) {
	log := logging.Get(logging.CategoryResilience)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		attempts = attempt
		value, err := call(ctx)
		if err == nil {
			return value, attempts, nil
		}
		lastErr = err

		if capability.Permanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, attempts, err
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		wait := e.backoff(attempt)
		var rle *RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			wait = rle.RetryAfter
		}

		log.Debugf("%s attempt %d/%d failed, retrying in %v: %v", op, attempt, e.cfg.MaxAttempts, wait, err)
		if err := e.sleep(ctx, wait); err != nil {
			return nil, attempts, err
		}
	}

	var rle *RateLimitError
	if errors.As(lastErr, &rle) {
		return nil, attempts, fmt.Errorf("%w after %d attempts (%s): %v",
			capability.ErrRateLimitExceeded, attempts, op, lastErr)
	}
	return nil, attempts, fmt.Errorf("%w after %d attempts (%s): %v",
		capability.ErrTransientFailure, attempts, op, lastErr)
}

// backoff computes the exponential delay for a completed attempt, with
// jitter so concurrent retries do not synchronize.
func (e *Executor) backoff(attempt int) time.Duration {
	d := e.cfg.BackoffBase << uint(attempt-1)
	if d > e.cfg.BackoffMax || d <= 0 {
		d = e.cfg.BackoffMax
	}
	if e.cfg.JitterFrac > 0 {
		d += time.Duration(rand.Float64() * e.cfg.JitterFrac * float64(d))
	}
	return d
}

// sleepCtx suspends only the calling goroutine.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
