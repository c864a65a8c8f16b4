package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrTimeout marks an attempt aborted by its per-attempt deadline.
var ErrTimeout = errors.New("upstream request timed out")

// ErrNoCandidates is returned when a fetch is attempted with an empty candidate list.
var ErrNoCandidates = errors.New("no upstream candidates configured")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code        int
	Candidate   string
	URL         string
	RetryAfter  string
	BodyExcerpt string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	msg := fmt.Sprintf("upstream returned status %d", e.Code)
	if e.Candidate != "" {
		msg += " (" + e.Candidate + ")"
	}
	return msg
}

// ShapeError reports a 2xx response whose body matched no recognized shape.
type ShapeError struct {
	Candidate string
	URL       string
}

func (e *ShapeError) Error() string {
	if e == nil || e.Candidate == "" {
		return "upstream response shape not recognized"
	}
	return "upstream response shape not recognized (" + e.Candidate + ")"
}

// ExhaustedError is returned once every candidate failed; Last is the final observed error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e == nil {
		return "all upstream candidates failed"
	}
	if e.Last == nil {
		return fmt.Sprintf("all %d upstream candidates failed", e.Attempts)
	}
	return fmt.Sprintf("all %d upstream candidates failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Last
}

// IsTimeout reports whether err stems from an attempt deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsNetworkFailure reports whether err was a transport-level failure rather than
// an upstream status or shape mismatch.
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return false
	}
	var shape *ShapeError
	if errors.As(err, &shape) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsRateLimited reports whether err carries an upstream rate-limit signal: a
// 429 StatusError or a message mentioning "rate limit". Bare "429" text is not
// enough since transport errors embed the request URL.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) && status.Code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
