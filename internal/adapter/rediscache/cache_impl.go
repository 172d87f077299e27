// Package rediscache provides a Redis-backed snapshot cache for deployments
// where multiple replicas should share one cache. TTL expiry is handled by
// Redis key expiration; capacity bounding is delegated to the server's
// maxmemory-policy (allkeys-lru recommended).
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

const snapshotKeyPrefix = "snapshot:"

// CacheImpl implements repository.SnapshotCache on top of a Redis client.
type CacheImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a Redis-backed snapshot cache with the given per-entry TTL.
func NewCache(client *redis.Client, ttl time.Duration) *CacheImpl {
	return &CacheImpl{client: client, ttl: ttl}
}

func storageKey(key string) string {
	return snapshotKeyPrefix + key
}

// Get retrieves and decodes the snapshot stored under key, if its TTL has
// not elapsed.
func (c *CacheImpl) Get(ctx context.Context, key string) (*entity.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var snap entity.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot %s: %w", key, err)
	}
	return &snap, true, nil
}

// Set stores snap under key with the configured TTL. SET with EX is atomic.
func (c *CacheImpl) Set(ctx context.Context, key string, snap *entity.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	return c.client.Set(ctx, storageKey(key), raw, c.ttl).Err()
}

// Has checks for the existence of a live entry under key.
func (c *CacheImpl) Has(ctx context.Context, key string) (bool, error) {
	val, err := c.client.Exists(ctx, storageKey(key)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// Len counts the snapshot keys currently stored.
func (c *CacheImpl) Len(ctx context.Context) (int64, error) {
	var count int64
	iter := c.client.Scan(ctx, 0, snapshotKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}
