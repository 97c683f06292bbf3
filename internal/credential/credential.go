// Package credential supplies bearer tokens to outbound calls and handles
// session expiry. Where and how tokens are persisted is left to callers.
package credential

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoCredential is returned when no token is currently stored.
var ErrNoCredential = errors.New("no credential stored")

// Provider supplies the bearer token for outbound requests.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// SessionHandler is notified when the results service rejects the credential.
type SessionHandler interface {
	SessionExpired(ctx context.Context)
}

// Store is an in-memory token holder. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	token string
}

// NewStore returns a Store seeded with token, which may be empty.
func NewStore(token string) *Store {
	return &Store{token: token}
}

func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoCredential
	}
	return s.token, nil
}

func (s *Store) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Store) Clear() {
	s.Set("")
}

// Present reports whether a token is stored.
func (s *Store) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Scope returns a short non-reversible fingerprint of the stored token, so
// per-user data (cached pages) can be partitioned without keeping the token itself.
func (s *Store) Scope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(s.token))
	return fmt.Sprintf("%x", sum[:8])
}

// ExpiryHandler clears the stored credential and directs the user to log in again.
type ExpiryHandler struct {
	store    *Store
	loginURL string
}

// NewExpiryHandler creates a SessionHandler bound to store.
func NewExpiryHandler(store *Store, loginURL string) *ExpiryHandler {
	return &ExpiryHandler{store: store, loginURL: loginURL}
}

func (h *ExpiryHandler) SessionExpired(_ context.Context) {
	h.store.Clear()
	slog.Warn("session expired, login required", "login_url", h.loginURL)
}

// LoginURL is where the user must go to obtain a new credential.
func (h *ExpiryHandler) LoginURL() string {
	return h.loginURL
}

var (
	_ Provider       = (*Store)(nil)
	_ SessionHandler = (*ExpiryHandler)(nil)
)
