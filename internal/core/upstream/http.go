package upstream

import (
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds how much of an upstream body is read per attempt.
const maxBodyBytes = 8 << 20

func retryAfterHeader(resp *http.Response) (time.Duration, string) {
	if resp == nil || resp.Header == nil {
		return 0, ""
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0, ""
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds, retry
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed), retry
	}

	return 0, retry
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func excerpt(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
