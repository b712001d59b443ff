package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Store backed by Redis. Records live under plain keys and
// index buckets are lists, which preserves insertion order for GetByIndex.
// A per-record membership set tracks which buckets reference the record so
// Delete can clean them up without scanning.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore creates a store over the given Redis client. All keys are
// prefixed with namespace so multiple stores can share one database.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "fedbridge"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) recordKey(key string) string {
	return s.namespace + ":rec:" + key
}

func (s *RedisStore) bucketKey(index Index) string {
	return s.namespace + ":idx:" + index.BucketKey()
}

func (s *RedisStore) membershipKey(key string) string {
	return s.namespace + ":mem:" + key
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, indexes ...Index) error {
	if err := s.client.Set(ctx, s.recordKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	for _, ix := range indexes {
		bucket := s.bucketKey(ix)
		member, err := s.client.SIsMember(ctx, s.membershipKey(key), bucket).Result()
		if err != nil {
			return fmt.Errorf("redis sismember: %w", err)
		}
		if member {
			continue
		}
		if err := s.client.RPush(ctx, bucket, key).Err(); err != nil {
			return fmt.Errorf("redis rpush: %w", err)
		}
		if err := s.client.SAdd(ctx, s.membershipKey(key), bucket).Err(); err != nil {
			return fmt.Errorf("redis sadd: %w", err)
		}
	}
	return nil
}

// GetByIndex implements Store.
func (s *RedisStore) GetByIndex(ctx context.Context, index Index) ([][]byte, error) {
	keys, err := s.client.LRange(ctx, s.bucketKey(index), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		value, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
		if err == redis.Nil {
			// Dangling member, repaired by the janitor.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		values = append(values, value)
	}
	return values, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	buckets, err := s.client.SMembers(ctx, s.membershipKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	if err := s.client.Del(ctx, s.recordKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	// Best-effort index cleanup after the primary delete.
	for _, bucket := range buckets {
		if err := s.client.LRem(ctx, bucket, 0, key).Err(); err != nil {
			return fmt.Errorf("redis lrem: %w", err)
		}
	}
	if err := s.client.Del(ctx, s.membershipKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteByIndex implements Store.
func (s *RedisStore) DeleteByIndex(ctx context.Context, index Index) error {
	bucket := s.bucketKey(index)
	keys, err := s.client.LRange(ctx, bucket, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis lrange: %w", err)
	}

	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, bucket).Err()
}

// ReconcileIndexes implements Reconciler.
func (s *RedisStore) ReconcileIndexes(ctx context.Context) (int, error) {
	removed := 0
	var cursor uint64
	for {
		buckets, next, err := s.client.Scan(ctx, cursor, s.namespace+":idx:*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}

		for _, bucket := range buckets {
			keys, err := s.client.LRange(ctx, bucket, 0, -1).Result()
			if err != nil {
				return removed, fmt.Errorf("redis lrange: %w", err)
			}
			for _, key := range keys {
				exists, err := s.client.Exists(ctx, s.recordKey(key)).Result()
				if err != nil {
					return removed, fmt.Errorf("redis exists: %w", err)
				}
				if exists == 0 {
					if err := s.client.LRem(ctx, bucket, 0, key).Err(); err != nil {
						return removed, fmt.Errorf("redis lrem: %w", err)
					}
					removed++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
