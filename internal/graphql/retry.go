package graphql

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often and how patiently a failed attempt is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether an attempt's error is worth another try.
	Retryable func(error) bool

	// Sleep waits between attempts; nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries transient transport failures up to three
// attempts with exponential backoff from 2s capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Retryable:   IsTransient,
	}
}

// Delay returns the wait before the attempt following attempt n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The last error is returned unchanged. Cancellation of ctx
// during a backoff returns ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Retryable == nil || !p.Retryable(err) || attempt == attempts {
			return err
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TransportError wraps a failure that happened before any HTTP response was
// received.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "timeout: " + e.Err.Error()
	}
	return "network error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a timeout or connectivity failure.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
