package upstream

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy is the single rate-limit policy shared by the pacer and the fetcher.
type RetryPolicy struct {
	// RateLimitBackoff is the wait before re-running an operation that hit a rate limit.
	RateLimitBackoff time.Duration
	// CandidatePause is the wait after a 429 before moving on to the next candidate.
	CandidatePause time.Duration
	// MaxRetries bounds re-runs after a rate limit.
	MaxRetries int
	// Sleep overrides the context-aware wait; used by tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the stock policy: 2s backoff, 5s candidate pause, one retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitBackoff: 2 * time.Second,
		CandidatePause:   5 * time.Second,
		MaxRetries:       1,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.RateLimitBackoff <= 0 {
		p.RateLimitBackoff = defaults.RateLimitBackoff
	}
	if p.CandidatePause < 0 {
		p.CandidatePause = 0
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// Do runs op and re-runs it after a rate-limit failure, up to MaxRetries times.
// beforeRetry is invoked after the backoff wait and before each re-run.
// Non-rate-limit errors are returned immediately.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error, beforeRetry func(attempt int, cause error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p = p.withDefaults()

	// An injected Sleep replaces the backoff timer, so backoff itself waits zero.
	var b backoff.BackOff = backoff.NewConstantBackOff(p.RateLimitBackoff)
	if p.Sleep != nil {
		b = &backoff.ZeroBackOff{}
	}

	var (
		tries   int
		cause   error
		waitErr error
	)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		if tries > 1 {
			if waitErr != nil {
				return struct{}{}, backoff.Permanent(waitErr)
			}
			if beforeRetry != nil {
				beforeRetry(tries-1, cause)
			}
		}
		err := op(ctx)
		if err != nil && !IsRateLimited(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxRetries)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, _ time.Duration) {
			cause = err
			if p.Sleep != nil {
				waitErr = p.Sleep(ctx, p.RateLimitBackoff)
			}
		}),
	)
	return err
}

// PauseAfterRateLimit waits out the candidate pause window.
func (p RetryPolicy) PauseAfterRateLimit(ctx context.Context) error {
	p = p.withDefaults()
	return p.Wait(ctx, p.CandidatePause)
}

// Wait blocks for d or until ctx is done.
func (p RetryPolicy) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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
