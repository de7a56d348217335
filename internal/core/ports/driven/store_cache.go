package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// StoreCache caches merged serialized stores keyed by the set of builds they combine
type StoreCache interface {
	// Get returns the cached snapshot, or (nil, nil) on a miss
	Get(ctx context.Context, key string) (*domain.SerializedStore, error)

	// Set stores a snapshot with the given TTL
	Set(ctx context.Context, key string, store *domain.SerializedStore, ttl time.Duration) error

	// Ping checks if the cache backend is healthy
	Ping(ctx context.Context) error
}
