package driver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyCalculateDelay(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:    Duration(100 * time.Millisecond),
		MaxDelay:     Duration(10 * time.Second),
		Multiplier:   2.0,
		JitterFactor: 0, // deterministic
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		if delay := policy.CalculateDelay(tt.attempt); delay != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestRetryPolicyCalculateDelayMaxCap(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:    Duration(1 * time.Second),
		MaxDelay:     Duration(5 * time.Second),
		Multiplier:   2.0,
		JitterFactor: 0,
	}
	if delay := policy.CalculateDelay(10); delay > policy.MaxDelay.Std() {
		t.Errorf("delay %v exceeds max %v", delay, policy.MaxDelay)
	}
}

func TestRetryPolicyCalculateDelayJitter(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:    Duration(100 * time.Millisecond),
		MaxDelay:     Duration(10 * time.Second),
		Multiplier:   2.0,
		JitterFactor: 1.0,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		delays[policy.CalculateDelay(1)] = true
	}
	if len(delays) < 10 {
		t.Error("full jitter should produce varied delays")
	}
}

func TestDatabaseErrorIsRetriable(t *testing.T) {
	tests := []struct {
		name      string
		err       *DatabaseError
		retriable bool
	}{
		{
			name:      "transient error",
			err:       &DatabaseError{Code: "Neo.TransientError.Network.Timeout"},
			retriable: true,
		},
		{
			name:      "memgraph conflict",
			err:       &DatabaseError{Message: "Cannot resolve conflicting transactions"},
			retriable: true,
		},
		{
			name:      "deadlock",
			err:       &DatabaseError{Code: "Neo.TransientError.Transaction.DeadlockDetected"},
			retriable: true,
		},
		{
			name:      "not a leader",
			err:       &DatabaseError{Message: "not a leader"},
			retriable: true,
		},
		{
			name:      "auth error",
			err:       &DatabaseError{Code: "Neo.ClientError.Security.Unauthorized"},
			retriable: false,
		},
		{
			name:      "syntax error",
			err:       &DatabaseError{Code: "Neo.ClientError.Statement.SyntaxError"},
			retriable: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetriable(); got != tt.retriable {
				t.Errorf("IsRetriable() = %v, want %v", got, tt.retriable)
			}
		})
	}
}

func TestRetryDoSucceedsAfterTransientFailures(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:  4,
		BaseDelay:    Duration(time.Millisecond),
		MaxDelay:     Duration(5 * time.Millisecond),
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &DatabaseError{Code: "Neo.TransientError.General.TransactionOutdated"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDoStopsOnPermanentError(t *testing.T) {
	policy := DefaultRetryPolicy()
	permanent := &DatabaseError{Code: "Neo.ClientError.Statement.SyntaxError"}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    Duration(time.Millisecond),
		MaxDelay:     Duration(2 * time.Millisecond),
		Multiplier:   1.0,
		JitterFactor: 0,
	}
	transient := &DatabaseError{Code: "Neo.TransientError.Network.Timeout"}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return transient
	})

	var retryErr *RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("err = %v, want *RetryError", err)
	}
	if !errors.Is(err, transient) {
		t.Error("RetryError does not unwrap to original")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestIsRetriableContextErrors(t *testing.T) {
	if IsRetriable(context.Canceled) {
		t.Error("context.Canceled must not be retried")
	}
	if IsRetriable(context.DeadlineExceeded) {
		t.Error("context.DeadlineExceeded must not be retried")
	}
	if !IsRetriable(errors.New("connection refused")) {
		t.Error("connection refused should be retriable")
	}
	if IsRetriable(nil) {
		t.Error("nil error is not retriable")
	}
}
