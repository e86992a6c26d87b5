package csrf

import (
	"context"
	"sync"
)

// TokenStore keeps secrets by token name inside whatever scope ctx identifies
// (usually the session of the current request). Errors are backend failures
// and are passed back to the caller untouched.
type TokenStore interface {
	Get(ctx context.Context, name string) (secret string, ok bool, err error)
	Set(ctx context.Context, name, secret string) error
	Remove(ctx context.Context, name string) error
}

// MemoryStore is a TokenStore holding a single scope in memory. It ignores
// ctx, so every request sees the same secrets.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the secret stored under name.
func (m *MemoryStore) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok, nil
}

// Set stores secret under name, replacing any previous value.
func (m *MemoryStore) Set(_ context.Context, name, secret string) error {
	m.mu.Lock()
	m.values[name] = secret
	m.mu.Unlock()
	return nil
}

// Remove deletes the secret stored under name.
func (m *MemoryStore) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.values, name)
	m.mu.Unlock()
	return nil
}
