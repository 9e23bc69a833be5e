package bikeapi

import "sync"

// TokenStore holds the rider's API token in memory
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore creates a store seeded with token (may be empty)
func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token}
}

// Get returns the current token
func (t *TokenStore) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Set replaces the current token
func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// Clear forgets the token
func (t *TokenStore) Clear() {
	t.Set("")
}

// Present reports whether a token is set
func (t *TokenStore) Present() bool {
	return t.Get() != ""
}
