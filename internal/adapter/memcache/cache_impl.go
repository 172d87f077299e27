// Package memcache provides the default in-process snapshot cache: a
// capacity-bounded LRU with per-entry TTL. It mirrors the behavior of the
// Redis backend closely enough that the two are interchangeable behind
// repository.SnapshotCache.
package memcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

type cacheEntry struct {
	key      string
	snap     *entity.Snapshot
	expireAt time.Time
}

// CacheImpl is an LRU cache with lazy TTL expiry. All operations are guarded
// by a single mutex; entries are tracked in a doubly linked list ordered by
// recency, with the most recently used element at the front.
type CacheImpl struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	entries  map[string]*list.Element

	now func() time.Time // overridable in tests
}

// New creates a cache holding at most capacity entries, each live for ttl
// after its Set.
func New(capacity int, ttl time.Duration) *CacheImpl {
	if capacity < 1 {
		capacity = 1
	}
	return &CacheImpl{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the live entry for key. Reading refreshes the entry's recency.
// An entry past its TTL is removed and reported as absent.
func (c *CacheImpl) Get(_ context.Context, key string) (*entity.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expireAt) {
		c.removeLocked(elem)
		return nil, false, nil
	}
	c.order.MoveToFront(elem)
	return entry.snap, true, nil
}

// Set stores snap under key. Storing an existing key replaces its value and
// restarts its TTL; storing a new key at capacity evicts the
// least-recently-used entry first.
func (c *CacheImpl) Set(_ context.Context, key string, snap *entity.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.snap = snap
		entry.expireAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return nil
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:      key,
		snap:     snap,
		expireAt: c.now().Add(c.ttl),
	})
	return nil
}

// Has reports whether a live entry exists for key without refreshing its
// recency.
func (c *CacheImpl) Has(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if c.now().After(elem.Value.(*cacheEntry).expireAt) {
		c.removeLocked(elem)
		return false, nil
	}
	return true, nil
}

// Len returns the number of stored entries, including entries that have
// expired but not yet been swept by a read.
func (c *CacheImpl) Len(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.order.Len()), nil
}

func (c *CacheImpl) removeLocked(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry).key)
}
