package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps state in process memory. It is the injectable fake
// used by tests and by the shell when persistence is disabled.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(ctx context.Context, values map[string]string) error {
	return m.Replace(ctx, values, nil)
}

func (m *MemoryStorage) Delete(ctx context.Context, keys ...string) error {
	return m.Replace(ctx, nil, keys)
}

func (m *MemoryStorage) Replace(_ context.Context, set map[string]string, del []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range del {
		delete(m.values, k)
	}
	for k, v := range set {
		m.values[k] = v
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
