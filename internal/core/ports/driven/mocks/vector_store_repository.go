package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.VectorStoreRepository = (*MockVectorStoreRepository)(nil)

// MockVectorStoreRepository is an in-memory VectorStoreRepository for testing
type MockVectorStoreRepository struct {
	mu     sync.RWMutex
	stores map[string]*domain.StoredVectorStore

	ReplaceErr error
}

// NewMockVectorStoreRepository creates an empty repository
func NewMockVectorStoreRepository() *MockVectorStoreRepository {
	return &MockVectorStoreRepository{
		stores: make(map[string]*domain.StoredVectorStore),
	}
}

func (m *MockVectorStoreRepository) Replace(ctx context.Context, store *domain.StoredVectorStore) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *store
	if prev, ok := m.stores[store.DocumentID]; ok {
		copied.CreatedAt = prev.CreatedAt
	}
	m.stores[store.DocumentID] = &copied
	return nil
}

func (m *MockVectorStoreRepository) Get(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockVectorStoreRepository) GetMany(ctx context.Context, documentIDs []string) ([]*domain.StoredVectorStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.StoredVectorStore
	for _, id := range documentIDs {
		if s, ok := m.stores[id]; ok {
			copied := *s
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *MockVectorStoreRepository) GetInfo(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	s, err := m.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	s.Data = nil
	return s, nil
}

func (m *MockVectorStoreRepository) List(ctx context.Context, limit, offset int) ([]*domain.StoredVectorStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.StoredVectorStore, 0, len(m.stores))
	for _, s := range m.stores {
		copied := *s
		copied.Data = nil
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockVectorStoreRepository) Delete(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[documentID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.stores, documentID)
	return nil
}

// Count returns the number of stored documents
func (m *MockVectorStoreRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}
