package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned by RetryPolicy.Do when every attempt failed.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// RetryPolicy bounds retries of a fallible remote operation.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// AttemptTimeout bounds each attempt. Zero means no per-attempt timeout.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns 3 attempts, 2s apart, 30s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Backoff:        2 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Do calls op until it succeeds, MaxAttempts calls have failed, or ctx is done.
// attempt is 1-based. When attempts run out the returned error wraps both
// ErrAttemptsExhausted and the last failure.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.call(ctx, attempt, op)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts {
			break
		}

		if err := sleep(ctx, p.Backoff); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}

func (p RetryPolicy) call(ctx context.Context, attempt int, op func(context.Context, int) error) error {
	if p.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		defer cancel()
	}
	return op(ctx, attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
