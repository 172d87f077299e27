package repository

import (
	"context"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

// SnapshotCache defines the contract for the bounded snapshot store.
// Implementations must be safe for concurrent use. An entry whose TTL has
// elapsed behaves as absent. The cache does not guarantee at-most-one
// concurrent fill per key; the use case layer handles that.
type SnapshotCache interface {
	// Get returns the live entry for key, if any.
	Get(ctx context.Context, key string) (*entity.Snapshot, bool, error)
	// Set stores snap under key, evicting the least-recently-used entry if
	// the cache is at capacity.
	Set(ctx context.Context, key string, snap *entity.Snapshot) error
	// Has reports whether a live entry exists for key.
	Has(ctx context.Context, key string) (bool, error)
	// Len returns the current number of stored entries, counting entries
	// that have expired but not yet been swept.
	Len(ctx context.Context) (int64, error)
}
