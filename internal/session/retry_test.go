package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetryPolicyExhausts(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	calls := 0
	err := policy.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt != calls {
			t.Errorf("Expected attempt %d, got %d", calls, attempt)
		}
		return errTransient
	})

	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, ErrAttemptsExhausted) || !errors.Is(err, errTransient) {
		t.Errorf("Expected exhausted error wrapping the last failure, got %v", err)
	}
}

func TestRetryPolicySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3}
	calls := 0
	err := policy.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls < 2 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}
	calls := 0
	err := policy.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return errTransient
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrAttemptsExhausted) {
		t.Error("Cancellation must not be reported as exhaustion")
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", calls)
	}
}

func TestRetryPolicyAttemptTimeout(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 2, AttemptTimeout: 5 * time.Millisecond}
	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context, _ int) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	if calls != 2 {
		t.Errorf("Expected timed out attempts to be retried, got %d calls", calls)
	}
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestRetryPolicyZeroAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_ = RetryPolicy{}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errTransient
	})
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}
