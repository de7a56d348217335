package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StoreCache = (*StoreCache)(nil)

const storeCachePrefix = "rag:store:"

// StoreCache implements driven.StoreCache using Redis.
// Entries are JSON snapshots that expire through Redis TTL.
type StoreCache struct {
	client *redis.Client
}

// NewStoreCache creates a new Redis-backed StoreCache
func NewStoreCache(client *redis.Client) *StoreCache {
	return &StoreCache{client: client}
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
// An undecodable entry is deleted and reported as a miss.
func (c *StoreCache) Get(ctx context.Context, key string) (*domain.SerializedStore, error) {
	data, err := c.client.Get(ctx, storeCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached store: %w", err)
	}

	var store domain.SerializedStore
	if err := json.Unmarshal(data, &store); err != nil {
		_ = c.client.Del(ctx, storeCachePrefix+key).Err()
		return nil, nil
	}
	return &store, nil
}

// Set stores a snapshot with the given TTL. A non-positive TTL stores nothing.
func (c *StoreCache) Set(ctx context.Context, key string, store *domain.SerializedStore, ttl time.Duration) error {
	if store == nil || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := c.client.Set(ctx, storeCachePrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache store: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy
func (c *StoreCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
