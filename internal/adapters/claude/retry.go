package claude

import (
	"context"
	crand "crypto/rand"
	"errors"
	"net/http"
	"time"

	"placecurator/internal/domain"
)

// RetryPolicy retries an operation with exponential back-off while Retryable says so.
// MaxRetries counts retries, so an operation runs at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Jitter     float64 // up to this fraction of the delay is added at random
	Retryable  func(error) bool
}

// DefaultRetryPolicy retries rate limiting and unavailability: 3 retries from 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Jitter: 0.5, Retryable: IsTransient}
}

// IsTransient reports 429 and 503 upstream answers.
func IsTransient(err error) bool {
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	return ue.Status == http.StatusTooManyRequests || ue.Status == http.StatusServiceUnavailable
}

// Delay returns the wait before retry number i (0-based): BaseDelay * 2^i plus jitter.
func (p RetryPolicy) Delay(i int) time.Duration {
	base := p.BaseDelay << i
	if p.Jitter <= 0 {
		return base
	}
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(p.Jitter*f*float64(base))
}

// Do runs fn until it succeeds, fails with a non-retryable error, or retries run out.
// Running out yields *domain.RetryExhaustedError wrapping the last failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := 0
	for {
		err := fn(ctx)
		attempts++
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempts > p.MaxRetries {
			return &domain.RetryExhaustedError{Attempts: attempts, Err: err}
		}
		if !sleepCtx(ctx, p.Delay(attempts-1)) {
			return ctx.Err()
		}
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
