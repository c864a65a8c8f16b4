package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/internal/core"
)

func recordingPolicy(waits *[]time.Duration) RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return policy
}

func TestFetchFirstMatchStopsAtFirstUsableCandidate(t *testing.T) {
	var hits [3]int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/0xabc-bsc":
			atomic.AddInt32(&hits[0], 1)
			w.WriteHeader(http.StatusNotFound)
		case "/tokens":
			atomic.AddInt32(&hits[1], 1)
			_, _ = w.Write([]byte(`{"status":1,"data":{"token":{"symbol":"ABC"}}}`))
		default:
			atomic.AddInt32(&hits[2], 1)
			_, _ = w.Write([]byte(`{"token":{"symbol":"XYZ"}}`))
		}
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL, APIKey: "k"}
	fetcher := &Fetcher{Client: client}

	result, err := fetcher.FetchFirstMatch(context.Background(), client.TokenDetailCandidates(core.TokenRef{Address: "0xabc", Chain: "bsc"}))
	require.NoError(t, err)
	require.Equal(t, 2, result.Attempt)
	require.Equal(t, ShapeStatusDataToken, result.Shape)
	require.Equal(t, "ABC", result.Payload.Get("symbol").String())
	require.EqualValues(t, 1, atomic.LoadInt32(&hits[0]))
	require.EqualValues(t, 1, atomic.LoadInt32(&hits[1]))
	require.EqualValues(t, 0, atomic.LoadInt32(&hits[2]))
}

func TestFetchFirstMatchSendsCredentials(t *testing.T) {
	var gotKey, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(APIKeyHeader)
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"status":1,"data":{}}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL, APIKey: "secret"}
	fetcher := &Fetcher{Client: client}

	_, err := fetcher.FetchFirstMatch(context.Background(), client.RiskCandidates(core.TokenRef{Address: "0xabc", Chain: "eth"}))
	require.NoError(t, err)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "*/*", gotAccept)
}

func TestFetchFirstMatchPausesAfterRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"holders":[{"address":"0x1","quantity":"10"}]}`))
	}))
	defer server.Close()

	var waits []time.Duration
	client := &Client{HTTP: server.Client(), BaseURL: server.URL}
	fetcher := &Fetcher{Client: client, Policy: recordingPolicy(&waits)}

	result, err := fetcher.FetchFirstMatch(context.Background(), client.HolderCandidates(core.TokenRef{Address: "0xabc", Chain: "bsc"}))
	require.NoError(t, err)
	require.Equal(t, ShapeHolders, result.Shape)
	require.Equal(t, []time.Duration{5 * time.Second}, waits)
}

func TestFetchFirstMatchNoPauseAfterLastCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var waits []time.Duration
	client := &Client{HTTP: server.Client(), BaseURL: server.URL}
	fetcher := &Fetcher{Client: client, Policy: recordingPolicy(&waits)}

	_, err := fetcher.FetchFirstMatch(context.Background(), client.KlineCandidates(core.TokenRef{Address: "0xabc", Chain: "bsc"}, "1h", 10))
	require.Error(t, err)
	require.Empty(t, waits)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, 1, exhausted.Attempts)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusTooManyRequests, status.Code)
	require.True(t, IsRateLimited(err))
}

func TestFetchFirstMatchShapeMissExhausts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"msg":"nothing here"}`))
	}))
	defer server.Close()

	var attempts []Attempt
	client := &Client{HTTP: server.Client(), BaseURL: server.URL}
	fetcher := &Fetcher{Client: client, OnAttempt: func(a Attempt) { attempts = append(attempts, a) }}

	_, err := fetcher.FetchFirstMatch(context.Background(), client.TransactionCandidates(core.TokenRef{Address: "0xABC", Chain: "BSC"}, 20, ""))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, 6, exhausted.Attempts)

	var shape *ShapeError
	require.True(t, errors.As(err, &shape))
	require.Len(t, attempts, 6)
	for _, a := range attempts {
		require.Equal(t, OutcomeShapeMiss, a.Outcome)
	}
	require.Contains(t, attempts[0].URL, "/txs/0xabc-bsc")
	require.Contains(t, attempts[1].URL, "/txs/0xabc_fo-bsc")
	require.Contains(t, attempts[4].URL, "/transactions/latest")
}

func TestFetchFirstMatchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := &Client{HTTP: server.Client(), BaseURL: server.URL, Timeout: 50 * time.Millisecond}
	fetcher := &Fetcher{Client: client}

	_, err := fetcher.FetchFirstMatch(context.Background(), client.RiskCandidates(core.TokenRef{Address: "0xabc", Chain: "bsc"}))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTimeout))
	require.True(t, IsTimeout(err))
	require.True(t, IsNetworkFailure(err))
}

func TestFetchFirstMatchHonorsCancellation(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}
	fetcher := &Fetcher{Client: client}

	_, err := fetcher.FetchFirstMatch(ctx, client.HolderCandidates(core.TokenRef{Address: "0xabc", Chain: "bsc"}))
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestFetchFirstMatchWithoutCandidates(t *testing.T) {
	fetcher := &Fetcher{Client: &Client{}}
	_, err := fetcher.FetchFirstMatch(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestSearchCandidateAcceptsEmptyAnswer(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"status":0,"msg":"no data"}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}
	fetcher := &Fetcher{Client: client}

	result, err := fetcher.FetchFirstMatch(context.Background(), client.SearchCandidates("pepe", ""))
	require.NoError(t, err)
	require.Equal(t, ShapeUnknown, result.Shape)
	require.False(t, result.Payload.Exists())
	require.Equal(t, "keyword=pepe", query)
}

func TestIntervalMinutes(t *testing.T) {
	require.Equal(t, 60, IntervalMinutes("1h"))
	require.Equal(t, 43200, IntervalMinutes("1M"))
	require.Equal(t, 1, IntervalMinutes("1m"))
	require.Equal(t, 1440, IntervalMinutes("bogus"))
}
