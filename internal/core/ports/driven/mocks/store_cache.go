package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.StoreCache = (*MockStoreCache)(nil)

// MockStoreCache is an in-memory StoreCache that ignores TTLs
type MockStoreCache struct {
	mu      sync.Mutex
	entries map[string]*domain.SerializedStore
	hits    int
	misses  int
}

// NewMockStoreCache creates an empty cache
func NewMockStoreCache() *MockStoreCache {
	return &MockStoreCache{entries: make(map[string]*domain.SerializedStore)}
}

func (m *MockStoreCache) Get(ctx context.Context, key string) (*domain.SerializedStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, nil
	}
	m.hits++
	return s, nil
}

func (m *MockStoreCache) Set(ctx context.Context, key string, store *domain.SerializedStore, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = store
	return nil
}

func (m *MockStoreCache) Ping(ctx context.Context) error {
	return nil
}

// Hits returns the number of cache hits
func (m *MockStoreCache) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}

// Misses returns the number of cache misses
func (m *MockStoreCache) Misses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses
}
