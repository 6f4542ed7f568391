package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/stacklens/sentry-mcp/internal/sentry"
)

const (
	authorizePath = "/oauth/authorize"
	callbackPath  = "/oauth/callback"

	// stateTTL bounds how long an issued state parameter stays valid.
	stateTTL = 10 * time.Minute
)

// stateRegistry tracks the state parameters issued by handleAuthorize so
// handleCallback can reject forged or replayed callbacks.
type stateRegistry struct {
	mu     sync.Mutex
	issued map[string]time.Time
}

func newStateRegistry() *stateRegistry {
	return &stateRegistry{issued: make(map[string]time.Time)}
}

func (r *stateRegistry) issue() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(b[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued[state] = time.Now().Add(stateTTL)
	return state, nil
}

// consume validates a state parameter and removes it; states are
// single-use.
func (r *stateRegistry) consume(state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.issued[state]
	if !ok {
		return false
	}
	delete(r.issued, state)
	return time.Now().Before(expiry)
}

// handleAuthorize redirects the browser to the upstream authorization
// endpoint with a freshly issued state parameter.
func (m *MCPServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := m.states.issue()
	if err != nil {
		m.logger.Error("Failed to issue OAuth state: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	authURL, err := sentry.BuildAuthorizeURL(sentry.AuthorizeURLParams{
		UpstreamURL: m.cfg.OAuth.AuthorizeURL,
		ClientID:    m.cfg.OAuth.ClientID,
		RedirectURI: m.cfg.OAuth.RedirectURI,
		Scope:       m.cfg.OAuth.Scope,
		State:       state,
	})
	if err != nil {
		m.logger.Error("Failed to build authorize URL: %v", err)
		http.Error(w, "Invalid authorization configuration", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback receives the upstream redirect, exchanges the
// authorization code, and stores the token. The HTTP status surfaced to
// the browser is decided here from the exchanger's structured errors.
func (m *MCPServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()

	if errParam := params.Get("error"); errParam != "" {
		m.logger.Warning("Authorization denied: %s - %s", errParam, params.Get("error_description"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if state := params.Get("state"); !m.states.consume(state) {
		m.logger.Warning("Rejected OAuth callback with unknown or expired state")
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	token, err := m.exchanger.ExchangeCode(r.Context(), sentry.ExchangeRequest{
		UpstreamURL:  m.cfg.OAuth.TokenURL,
		ClientID:     m.cfg.OAuth.ClientID,
		ClientSecret: m.cfg.OAuth.ClientSecret,
		Code:         params.Get("code"),
		RedirectURI:  m.cfg.OAuth.RedirectURI,
	})
	if err != nil {
		var endpointErr *sentry.TokenEndpointError
		var malformedErr *sentry.TokenResponseMalformedError
		switch {
		case errors.Is(err, sentry.ErrMissingAuthorizationCode):
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
		case errors.As(err, &endpointErr):
			m.logger.Error("Token exchange rejected upstream: %v", err)
			http.Error(w, "Token exchange failed", http.StatusBadGateway)
		case errors.As(err, &malformedErr):
			m.logger.Error("Token endpoint contract violation: %v", err)
			http.Error(w, "Token exchange failed", http.StatusBadGateway)
		default:
			m.logger.Error("Token exchange failed: %v", err)
			http.Error(w, "Token exchange failed", http.StatusBadGateway)
		}
		return
	}

	m.tokens.Save(token)
	m.logger.Success("Access token obtained and stored")

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>`))
}
