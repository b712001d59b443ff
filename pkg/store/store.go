package store

import (
	"context"
	"errors"

	"github.com/fedbridge/fedbridge/pkg/dbutils"
)

// ErrNotFound is returned by Get when no record exists under the given key.
var ErrNotFound = errors.New("record not found")

// Index identifies a secondary index bucket by name and value.
type Index struct {
	Name  string
	Value string
}

// BucketKey returns the flat identifier for the index bucket. The (name,
// value) pair is digested so arbitrary values (entity IDs are full URLs) can
// serve as bucket identifiers on any backend.
func (ix Index) BucketKey() string {
	return dbutils.KeyDigest(dbutils.KeyFromParts(ix.Name, ix.Value))
}

// Store is the backend-agnostic contract for keyed record storage with
// secondary-index support. Values are opaque to the store.
type Store interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the record under key and appends key to each index bucket.
	// Overwriting an existing key replaces the record in place and must not
	// duplicate existing bucket memberships.
	Put(ctx context.Context, key string, value []byte, indexes ...Index) error

	// GetByIndex returns every record whose key is listed in the index
	// bucket, in bucket order. A missing bucket yields an empty slice.
	GetByIndex(ctx context.Context, index Index) ([][]byte, error)

	// Delete removes the record under key. Index cleanup is best-effort.
	Delete(ctx context.Context, key string) error

	// DeleteByIndex removes every record listed in the index bucket, then
	// the bucket itself.
	DeleteByIndex(ctx context.Context, index Index) error

	// Close releases backend resources.
	Close() error
}

// Reconciler is implemented by backends that can enumerate their index
// buckets and drop members whose primary record no longer exists. The
// Janitor uses it to repair the non-atomic multi-key write window.
type Reconciler interface {
	// ReconcileIndexes removes dangling index members and empty buckets,
	// returning the number of members removed.
	ReconcileIndexes(ctx context.Context) (int, error)
}
