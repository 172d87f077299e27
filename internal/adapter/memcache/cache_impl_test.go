package memcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

func snap(key string) *entity.Snapshot {
	return &entity.Snapshot{
		Key:          key,
		Source:       entity.SourceFetched,
		RenderedHTML: "<p>" + key + "</p>",
		CreatedAt:    time.Now(),
	}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(10, time.Minute)

	got, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSetGetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", snap("k")))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k", got.Key)

	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
}

// Inserting 101 distinct keys into a capacity-100 cache evicts exactly the
// least-recently-used key.
func TestCapacityEviction(t *testing.T) {
	c := New(100, time.Minute)
	ctx := context.Background()

	for i := 0; i <= 100; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), snap("v")))
	}

	size, err := c.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 100, size)

	// key-0 was the oldest and the only one evicted.
	has, err := c.Has(ctx, "key-0")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = c.Has(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", snap("a")))
	require.NoError(t, c.Set(ctx, "b", snap("b")))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", snap("c")))

	hasA, _ := c.Has(ctx, "a")
	hasB, _ := c.Has(ctx, "b")
	assert.True(t, hasA)
	assert.False(t, hasB)
}

func TestSetExistingKeyReplacesWithoutEviction(t *testing.T) {
	c := New(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", snap("a")))
	require.NoError(t, c.Set(ctx, "b", snap("b")))
	require.NoError(t, c.Set(ctx, "a", snap("a2")))

	size, _ := c.Len(ctx)
	assert.EqualValues(t, 2, size)

	got, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Key)
}

// An entry read strictly after its TTL has elapsed behaves as a miss.
func TestTTLExpiry(t *testing.T) {
	c := New(10, 30*time.Minute)
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	require.NoError(t, c.Set(ctx, "k", snap("k")))

	current = current.Add(29 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok, "entry inside its TTL is live")

	current = current.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry past its TTL is a miss")

	// Lazy expiry removed the entry.
	size, _ := c.Len(ctx)
	assert.EqualValues(t, 0, size)
}

func TestHasExpiresLazily(t *testing.T) {
	c := New(10, time.Minute)
	ctx := context.Background()

	current := time.Now()
	c.now = func() time.Time { return current }

	require.NoError(t, c.Set(ctx, "k", snap("k")))
	current = current.Add(2 * time.Minute)

	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(50, time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%20)
				_ = c.Set(ctx, key, snap(key))
				_, _, _ = c.Get(ctx, key)
				_, _ = c.Has(ctx, key)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	size, err := c.Len(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, size, int64(50))
}
