package upstream

import (
	"context"
	"errors"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyRetriesRateLimitOnce(t *testing.T) {
	var waits []time.Duration
	policy := recordingPolicy(&waits)

	calls := 0
	retries := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: 429}
	}, func(attempt int, cause error) {
		retries++
		require.Equal(t, 1, attempt)
		require.True(t, IsRateLimited(cause))
	})

	require.Error(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 1, retries)
	require.Equal(t, []time.Duration{2 * time.Second}, waits)
}

func TestRetryPolicyRecoversAfterRateLimit(t *testing.T) {
	var waits []time.Duration
	policy := recordingPolicy(&waits)

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("upstream said: Rate Limit reached")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRetryPolicyIgnoresOtherErrors(t *testing.T) {
	var waits []time.Duration
	policy := recordingPolicy(&waits)

	calls := 0
	boom := errors.New("boom")
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	}, nil)

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
	require.Empty(t, waits)
}

func TestRetryPolicyWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DefaultRetryPolicy().Wait(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyWaitsWithBackoffTimer(t *testing.T) {
	policy := RetryPolicy{RateLimitBackoff: 20 * time.Millisecond, MaxRetries: 1}

	calls := 0
	start := time.Now()
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &StatusError{Code: 429}
		}
		return nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRetryPolicyStopsWhenCancelledDuringBackoff(t *testing.T) {
	policy := RetryPolicy{RateLimitBackoff: time.Hour, MaxRetries: 1}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := policy.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return &StatusError{Code: 429}
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestRetryPolicyZeroRetries(t *testing.T) {
	var waits []time.Duration
	policy := recordingPolicy(&waits)
	policy.MaxRetries = 0

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: 429}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, waits)
}

func TestIsRateLimited(t *testing.T) {
	require.True(t, IsRateLimited(&StatusError{Code: 429}))
	require.True(t, IsRateLimited(&ExhaustedError{Last: &StatusError{Code: 429}}))
	require.True(t, IsRateLimited(errors.New("upstream: Rate limit exceeded")))
	require.False(t, IsRateLimited(&StatusError{Code: 500}))
	require.False(t, IsRateLimited(nil))

	// Transport errors carry the request URL, which may contain "429".
	transport := &url.Error{
		Op:  "Get",
		URL: "http://127.0.0.1:1/contracts/0xdead429beef-bsc",
		Err: syscall.ECONNREFUSED,
	}
	require.False(t, IsRateLimited(transport))
	require.False(t, IsRateLimited(&ExhaustedError{Last: transport}))
}
