package driver

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy defines retry behavior with exponential backoff and jitter.
type RetryPolicy struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	BaseDelay    Duration `yaml:"base_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
	Multiplier   float64  `yaml:"multiplier"`
	JitterFactor float64  `yaml:"jitter_factor"` // 0.0 = no jitter, 1.0 = full jitter
}

// RetryError wraps the original error with retry context.
type RetryError struct {
	OriginalError   error
	Attempts        int
	CumulativeDelay time.Duration
}

func (e *RetryError) Error() string {
	return "max retries (" + strconv.Itoa(e.Attempts) + ") exceeded after " +
		e.CumulativeDelay.String() + ": " + e.OriginalError.Error()
}

func (e *RetryError) Unwrap() error { return e.OriginalError }

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  5,
		BaseDelay:    Duration(100 * time.Millisecond),
		MaxDelay:     Duration(10 * time.Second),
		Multiplier:   2.0,
		JitterFactor: 1.0,
	}
}

// NoRetryPolicy returns a policy that doesn't retry.
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// CalculateDelay computes the delay for a given attempt using exponential
// backoff with "full jitter" to avoid thundering herds.
func (p *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	capped := math.Min(base, float64(p.MaxDelay))

	jitter := math.Max(0, math.Min(1, p.JitterFactor))
	blend := 1.0 - jitter + rand.Float64()*jitter
	return time.Duration(capped * blend)
}

// Do runs fn, retrying retriable failures per the policy. Context errors are
// never retried.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var cumulative time.Duration
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetriable(lastErr) || attempt == p.MaxAttempts {
			break
		}
		delay := p.CalculateDelay(attempt)
		cumulative += delay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.MaxAttempts > 1 && IsRetriable(lastErr) {
		return &RetryError{OriginalError: lastErr, Attempts: p.MaxAttempts, CumulativeDelay: cumulative}
	}
	return lastErr
}

// IsRetriable checks if an error should trigger a retry.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr.IsRetriable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "eof", "timeout", "temporary failure"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
