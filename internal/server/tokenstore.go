package server

import (
	"sync"

	"github.com/stacklens/sentry-mcp/internal/sentry"
)

// TokenStore is the authorization-provider collaborator: it receives the
// token the OAuth callback obtained and hands it to later tool calls. The
// tools only ever read the access token as an opaque bearer string.
type TokenStore interface {
	Save(token *sentry.TokenResponse)
	Current() (*sentry.TokenResponse, bool)
}

// MemoryTokenStore keeps the most recent token in memory. Nothing is
// persisted across restarts.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token *sentry.TokenResponse
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Save replaces the stored token.
func (s *MemoryTokenStore) Save(token *sentry.TokenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Current returns the stored token, if any.
func (s *MemoryTokenStore) Current() (*sentry.TokenResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, false
	}
	return s.token, true
}
