package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStoreRepository persists the current serialized vector store of each document
type VectorStoreRepository interface {
	// Replace atomically swaps the document's store. Readers see either the old or the new one.
	Replace(ctx context.Context, store *domain.StoredVectorStore) error

	// Get retrieves a document's store with its records
	// Returns domain.ErrNotFound when the document has none
	Get(ctx context.Context, documentID string) (*domain.StoredVectorStore, error)

	// GetMany retrieves stores for several documents. Missing documents are skipped.
	GetMany(ctx context.Context, documentIDs []string) ([]*domain.StoredVectorStore, error)

	// GetInfo retrieves store metadata without records
	GetInfo(ctx context.Context, documentID string) (*domain.StoredVectorStore, error)

	// List returns metadata of all stores, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.StoredVectorStore, error)

	// Delete removes a document's store
	Delete(ctx context.Context, documentID string) error
}
