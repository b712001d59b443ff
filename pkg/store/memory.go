package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store backed by maps. All operations take a
// single lock, so multi-key writes are atomic here even though the Store
// contract does not promise it.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	// buckets maps a bucket key to the ordered list of member record keys.
	buckets map[string][]string
	// memberships maps a record key to the bucket keys that reference it,
	// used for cleanup on delete.
	memberships map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[string][]byte),
		buckets:     make(map[string][]string),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, indexes ...Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored

	for _, ix := range indexes {
		bucket := ix.BucketKey()
		if s.memberships[key] == nil {
			s.memberships[key] = make(map[string]struct{})
		}
		if _, member := s.memberships[key][bucket]; member {
			continue
		}
		s.buckets[bucket] = append(s.buckets[bucket], key)
		s.memberships[key][bucket] = struct{}{}
	}
	return nil
}

// GetByIndex implements Store.
func (s *MemoryStore) GetByIndex(ctx context.Context, index Index) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.buckets[index.BucketKey()]
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		value, ok := s.records[key]
		if !ok {
			// Dangling member, repaired by the janitor.
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		values = append(values, out)
	}
	return values, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	return nil
}

// DeleteByIndex implements Store.
func (s *MemoryStore) DeleteByIndex(ctx context.Context, index Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := index.BucketKey()
	// Snapshot the members first: deleteLocked mutates the bucket slice.
	members := make([]string, len(s.buckets[bucket]))
	copy(members, s.buckets[bucket])
	for _, key := range members {
		s.deleteLocked(key)
	}
	delete(s.buckets, bucket)
	return nil
}

// deleteLocked removes a record and its bucket memberships. Callers hold the
// write lock.
func (s *MemoryStore) deleteLocked(key string) {
	delete(s.records, key)
	for bucket := range s.memberships[key] {
		members := s.buckets[bucket]
		for i, member := range members {
			if member == key {
				s.buckets[bucket] = append(members[:i], members[i+1:]...)
				break
			}
		}
		if len(s.buckets[bucket]) == 0 {
			delete(s.buckets, bucket)
		}
	}
	delete(s.memberships, key)
}

// ReconcileIndexes implements Reconciler.
func (s *MemoryStore) ReconcileIndexes(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for bucket, members := range s.buckets {
		kept := members[:0]
		for _, key := range members {
			if _, ok := s.records[key]; ok {
				kept = append(kept, key)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.buckets, bucket)
		} else {
			s.buckets[bucket] = kept
		}
	}
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
