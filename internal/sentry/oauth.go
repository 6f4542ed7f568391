package sentry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthorizeURLParams are the inputs to BuildAuthorizeURL. One value is
// constructed per authorization attempt and never persisted.
type AuthorizeURLParams struct {
	// UpstreamURL is the upstream authorization endpoint, e.g.
	// https://sentry.io/oauth/authorize/.
	UpstreamURL string

	// ClientID identifies the OAuth application registered upstream.
	ClientID string

	// RedirectURI is where the upstream sends the authorization code.
	RedirectURI string

	// Scope is the space-separated scope string to request.
	Scope string

	// State is the opaque CSRF token; included only if non-empty.
	State string
}

// BuildAuthorizeURL constructs the upstream authorization redirect URL.
// Pure: no network, no mutable state. A malformed UpstreamURL propagates
// as a URL-construction failure.
func BuildAuthorizeURL(p AuthorizeURLParams) (string, error) {
	u, err := url.Parse(p.UpstreamURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize URL: %w", err)
	}

	q := u.Query()
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("scope", p.Scope)
	q.Set("response_type", "code")
	if p.State != "" {
		q.Set("state", p.State)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ExchangeRequest are the inputs to ExchangeCode.
type ExchangeRequest struct {
	// UpstreamURL is the upstream token endpoint, e.g.
	// https://sentry.io/oauth/token/.
	UpstreamURL string

	// ClientID and ClientSecret authenticate the OAuth application.
	ClientID     string
	ClientSecret string

	// Code is the authorization code from the callback. Required.
	Code string

	// RedirectURI is carried for the caller's bookkeeping. It is NOT
	// sent in the exchange body: the upstream issues tokens without it.
	RedirectURI string
}

// tokenExchangeTimeout bounds the single token-endpoint round trip when
// the exchanger builds its own HTTP client.
const tokenExchangeTimeout = 30 * time.Second

// TokenExchanger performs the authorization-code-for-access-token
// exchange against the upstream token endpoint.
type TokenExchanger struct {
	httpClient *http.Client
}

// NewTokenExchanger creates a token exchanger. A nil httpClient gets a
// default with a request timeout.
func NewTokenExchanger(httpClient *http.Client) *TokenExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: tokenExchangeTimeout}
	}
	return &TokenExchanger{httpClient: httpClient}
}

// ExchangeCode exchanges an authorization code for an access token.
//
// A missing code fails immediately with ErrMissingAuthorizationCode and
// issues no network call. Otherwise exactly one POST is made; a
// non-success status yields *TokenEndpointError with the original status
// and body, and a success status with an invalid body yields
// *TokenResponseMalformedError. There is no retry: the caller decides
// whether to restart the whole authorization flow.
func (t *TokenExchanger) ExchangeCode(ctx context.Context, req ExchangeRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, ErrMissingAuthorizationCode
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", req.ClientID)
	form.Set("client_secret", req.ClientSecret)
	form.Set("code", req.Code)
	// redirect_uri is deliberately absent from the body; the upstream
	// accepts the exchange without it.

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.UpstreamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", defaultUserAgent)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TokenEndpointError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token TokenResponse
	if err := decodeJSON(body, &token, "token response"); err != nil {
		return nil, &TokenResponseMalformedError{Reason: err.Error()}
	}
	if err := token.validate(); err != nil {
		return nil, &TokenResponseMalformedError{Reason: err.Error()}
	}

	return &token, nil
}
