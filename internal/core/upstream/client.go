package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production market-data API root.
const DefaultBaseURL = "https://prod.ave-api.com/v2"

// APIKeyHeader carries the upstream credential.
const APIKeyHeader = "X-API-KEY"

// Client builds authenticated requests against the market-data API.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewRequest builds a GET request for path relative to the base URL.
// Query values with empty strings are dropped.
func (c *Client) NewRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	base := c.baseURL()
	target := strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(path, "/")

	if encoded := encodeQuery(query); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	if c != nil && c.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.APIKey)
	}
	return req, nil
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.timeout()}
}

func (c *Client) timeout() time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

func (c *Client) baseURL() *url.URL {
	if c != nil && c.BaseURL != "" {
		if parsed, err := url.Parse(c.BaseURL); err == nil {
			return parsed
		}
	}
	parsed, _ := url.Parse(DefaultBaseURL)
	return parsed
}

func encodeQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	clean := url.Values{}
	for key, values := range query {
		for _, value := range values {
			if value == "" {
				continue
			}
			clean.Add(key, value)
		}
	}
	return clean.Encode()
}
