// Package retry is the single retry/backoff value object shared by every
// rail adapter. Adapters used to be the place where retry loops lived in
// systems like this; keeping one policy here means the retry semantics are
// testable once instead of per provider.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossrail/internal/rails"
)

// Policy classifies errors and produces backoff delays with a bounded
// attempt count.
type Policy struct {
	// MaxAttempts is the number of retries after the first try; the default
	// of 3 yields up to 4 total tries.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
}

// DefaultPolicy matches the provider SLAs this system integrates with.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// ShouldRetry reports whether another attempt is worthwhile after
// attemptNumber completed tries. A per-attempt deadline expiry counts as
// transient; the saga-level context going away does not.
func (p Policy) ShouldRetry(err error, attemptNumber int) bool {
	if attemptNumber > p.MaxAttempts {
		return false
	}
	return rails.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}

// BackoffDelay returns base * 2^(attempt-1) for the given attempt number.
func (p Policy) BackoffDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	return p.BaseDelay << (attemptNumber - 1)
}

// ExhaustedError marks a call that never got a definitive provider answer:
// every attempt failed with a retryable error. Callers distinguish this from
// a first-attempt rejection, where the provider did answer and said no.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether an error is a retries-exhausted terminal
// failure.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Do runs fn with the policy's retry loop. Backoff sleeps on the calling
// goroutine and honors ctx cancellation. A fatal error is returned as-is
// after the first attempt; exhausting the attempt ceiling returns
// ExhaustedError wrapping the last failure.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !rails.IsRetryable(err) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt > p.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Last: err}
		}
		if serr := sleep(ctx, p.BackoffDelay(attempt)); serr != nil {
			return err
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
