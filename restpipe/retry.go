package restpipe

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// minRetryDelay is the floor applied to every inter-attempt delay.
const minRetryDelay = 50 * time.Millisecond

// RetryPolicy configures the retry loop of the transport orchestrator.
// A Multiplier of 1.0 gives a fixed delay; larger values give
// exponential backoff capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap on the delay between attempts
	Multiplier  float64       // backoff factor per retry
	Jitter      bool          // add random jitter to prevent thundering herd
	OnRetry     func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the default policy: three attempts with a
// fixed one-second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  1.0,
	}
}

// Delay calculates the delay before retry n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1.0
	}
	delay := float64(p.BaseDelay) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		// +/- 50% jitter
		delay = delay * (0.5 + rand.Float64())
	}
	d := time.Duration(delay)
	if d < minRetryDelay {
		d = minRetryDelay
	}
	return d
}

// retry executes fn up to policy.MaxAttempts times. Only retryable
// errors are retried; cancellation mid-delay is surfaced as an
// AbortError, or a RequestTimeoutError when the deadline expired.
func retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < attempts-1; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		// Rate-limited responses may carry an explicit Retry-After.
		delay := policy.Delay(attempt)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			retryDelay := time.Duration(*rl.RetryAfter * float64(time.Second))
			if policy.MaxDelay > 0 && retryDelay > policy.MaxDelay {
				// Retry-After exceeds the cap; surface immediately.
				return zero, err
			}
			if retryDelay > delay {
				delay = retryDelay
			}
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, ctxError(ctx, "request cancelled during retry delay")
		case <-time.After(delay):
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}

	return zero, err
}

// ctxError maps a done context to the pipeline error taxonomy:
// deadline expiry and explicit cancellation are distinct outcomes.
func ctxError(ctx context.Context, message string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &RequestTimeoutError{PipelineError: PipelineError{Message: message, Cause: ctx.Err()}}
	}
	return &AbortError{PipelineError: PipelineError{Message: message, Cause: ctx.Err()}}
}
