// Package sentry implements the Sentry API surface behind the MCP tools:
// the OAuth authorization-code leg and the file-scoped issue search
// pipeline that renders Markdown incident reports.
package sentry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// defaultBaseURL is the hosted Sentry API root. Self-hosted
	// installations override it via ClientConfig.BaseURL.
	defaultBaseURL = "https://sentry.io"

	// defaultUserAgent identifies this client to the upstream API.
	defaultUserAgent = "sentry-mcp/1.0"

	// maxResponseSize bounds upstream response bodies (4MB).
	maxResponseSize = 4 * 1024 * 1024

	// requestTimeout applies to the default HTTP client only. Callers
	// supplying their own client own the cancellation policy.
	requestTimeout = 30 * time.Second
)

// Client talks to the Sentry HTTP API. It holds no credentials: the
// access token is read-only input to each call, never cached.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a Sentry API client from a configuration. Zero-value
// fields fall back to hosted-Sentry defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: requestTimeout}
	}
	return c
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get issues one bearer-authenticated GET and returns the status code and
// the (size-bounded) body. Transport failures are wrapped; status handling
// is left to the caller, whose error taxonomy differs per endpoint.
func (c *Client) get(ctx context.Context, path string, query url.Values, accessToken string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	return resp.StatusCode, body, nil
}

// decodeJSON unmarshals a response body, reporting the target description
// in the error.
func decodeJSON(body []byte, v any, what string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return nil
}
