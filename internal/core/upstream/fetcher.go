package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tokenlens/tokenlens/internal/core"
)

// Candidate is one guess at an upstream request and response shape.
type Candidate struct {
	Description string
	// Category is stamped by the caller and reported on each Attempt.
	Category core.Category
	Build    func(ctx context.Context) (*http.Request, error)
	Parse    func(body []byte) (Match, bool)
}

// Result is the payload produced by the first usable candidate.
type Result struct {
	Match
	Candidate string
	URL       string
	Attempt   int
}

// Outcome classifies a single candidate attempt.
type Outcome string

const (
	OutcomeMatched     Outcome = "matched"
	OutcomeStatus      Outcome = "status"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeShapeMiss   Outcome = "shape_miss"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

// Attempt describes one finished candidate attempt.
type Attempt struct {
	Category   core.Category
	Candidate  string
	URL        string
	Index      int
	Outcome    Outcome
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Fetcher tries candidates strictly in order until one yields a usable payload.
type Fetcher struct {
	Client    *Client
	Policy    RetryPolicy
	OnAttempt func(Attempt)
}

// FetchFirstMatch evaluates candidates in priority order. Non-2xx responses and
// unrecognized bodies move on to the next candidate; a 429 additionally waits out
// the policy's candidate pause first. When every candidate fails the returned
// *ExhaustedError wraps the last observed error.
func (f *Fetcher) FetchFirstMatch(ctx context.Context, candidates []Candidate) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var lastErr error
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.attempt(ctx, i, candidate)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		var status *StatusError
		if errors.As(err, &status) && status.Code == http.StatusTooManyRequests && i < len(candidates)-1 {
			if waitErr := f.Policy.PauseAfterRateLimit(ctx); waitErr != nil {
				return nil, waitErr
			}
		}
	}

	return nil, &ExhaustedError{Attempts: len(candidates), Last: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, index int, candidate Candidate) (*Result, error) {
	started := time.Now()
	info := Attempt{Category: candidate.Category, Candidate: candidate.Description, Index: index}
	defer func() {
		info.Duration = time.Since(started)
		if f.OnAttempt != nil {
			f.OnAttempt(info)
		}
	}()

	if candidate.Build == nil || candidate.Parse == nil {
		info.Outcome = OutcomeError
		info.Err = fmt.Errorf("candidate %q is incomplete", candidate.Description)
		return nil, info.Err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.Client.timeout())
	defer cancel()

	req, err := candidate.Build(attemptCtx)
	if err != nil {
		info.Outcome = OutcomeError
		info.Err = fmt.Errorf("build %s: %w", candidate.Description, err)
		return nil, info.Err
	}
	info.URL = req.URL.String()

	resp, err := f.Client.httpClient().Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			info.Outcome = OutcomeTimeout
			info.Err = fmt.Errorf("%s: %w", candidate.Description, ErrTimeout)
			return nil, info.Err
		}
		info.Outcome = OutcomeError
		if IsTimeout(err) {
			info.Outcome = OutcomeTimeout
		}
		info.Err = fmt.Errorf("%s: %w", candidate.Description, err)
		return nil, info.Err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	info.StatusCode = resp.StatusCode
	body, err := readBody(resp)
	if err != nil {
		info.Outcome = OutcomeError
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			info.Outcome = OutcomeTimeout
			err = ErrTimeout
		}
		info.Err = fmt.Errorf("read %s: %w", candidate.Description, err)
		return nil, info.Err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, retryAfter := retryAfterHeader(resp)
		info.Outcome = OutcomeStatus
		if resp.StatusCode == http.StatusTooManyRequests {
			info.Outcome = OutcomeRateLimited
		}
		info.Err = &StatusError{
			Code:        resp.StatusCode,
			Candidate:   candidate.Description,
			URL:         info.URL,
			RetryAfter:  retryAfter,
			BodyExcerpt: excerpt(body),
		}
		return nil, info.Err
	}

	match, ok := candidate.Parse(body)
	if !ok {
		info.Outcome = OutcomeShapeMiss
		info.Err = &ShapeError{Candidate: candidate.Description, URL: info.URL}
		return nil, info.Err
	}

	info.Outcome = OutcomeMatched
	return &Result{Match: match, Candidate: candidate.Description, URL: info.URL, Attempt: index + 1}, nil
}
