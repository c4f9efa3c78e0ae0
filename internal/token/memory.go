package token

import (
	"context"
	"sync"
)

// Memory is a process-local token store
type Memory struct {
	mtx   sync.RWMutex
	token string
}

var _ Store = (*Memory)(nil)

// NewMemory creates a new memory token store holding the given initial token (may be empty)
func NewMemory(initial string) *Memory {
	return &Memory{token: initial}
}

// Get retrieves the current token or an empty string if there is none
func (store *Memory) Get(_ context.Context) (string, error) {
	store.mtx.RLock()
	defer store.mtx.RUnlock()
	return store.token, nil
}

// Set replaces the current token
func (store *Memory) Set(_ context.Context, token string) error {
	store.mtx.Lock()
	defer store.mtx.Unlock()
	store.token = token
	return nil
}

// Clear removes the current token
func (store *Memory) Clear(ctx context.Context) error {
	return store.Set(ctx, "")
}
