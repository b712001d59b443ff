package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore is a read-through LRU decorator over another Store. Only
// primary-key reads are cached; index lookups always hit the backend because
// bucket contents change underneath individual record writes.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, []byte]
}

// NewCachedStore wraps inner with an LRU cache of at most size records.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// Get implements Store.
func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := s.cache.Get(key); ok {
		return value, nil
	}
	value, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, value)
	return value, nil
}

// Put implements Store.
func (s *CachedStore) Put(ctx context.Context, key string, value []byte, indexes ...Index) error {
	if err := s.inner.Put(ctx, key, value, indexes...); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

// GetByIndex implements Store.
func (s *CachedStore) GetByIndex(ctx context.Context, index Index) ([][]byte, error) {
	return s.inner.GetByIndex(ctx, index)
}

// Delete implements Store.
func (s *CachedStore) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

// DeleteByIndex implements Store.
func (s *CachedStore) DeleteByIndex(ctx context.Context, index Index) error {
	if err := s.inner.DeleteByIndex(ctx, index); err != nil {
		return err
	}
	// The bucket members are not known here, so drop everything.
	s.cache.Purge()
	return nil
}

// ReconcileIndexes implements Reconciler when the inner store does.
func (s *CachedStore) ReconcileIndexes(ctx context.Context) (int, error) {
	if r, ok := s.inner.(Reconciler); ok {
		return r.ReconcileIndexes(ctx)
	}
	return 0, nil
}

// Close implements Store.
func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}
