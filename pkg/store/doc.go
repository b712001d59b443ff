// Package store provides the keyed storage abstraction that all connection
// records are persisted through.
//
// # Contract
//
// A Store holds opaque values under a primary key and maintains non-unique
// secondary indexes. Each index bucket is identified by a (name, value) pair
// and holds the ordered set of primary keys sharing that pair. Multiple
// records may legitimately share an index value; for example several identity
// providers configured for the same tenant and product all appear under one
// tenantProduct bucket.
//
// Per-key operations are atomic within a backend. Writes that touch the
// primary record and one or more index buckets are NOT atomic as a group: a
// crash between the primary write and an index write leaves the record stored
// but unreachable through that index (or, for deletes, leaves a dangling
// bucket member). The Janitor periodically sweeps backends that support
// reconciliation and drops index members whose primary record is gone.
//
// # Backends
//
//   - MemoryStore: mutex-guarded in-process maps, used as the baseline
//     implementation and in tests.
//   - RedisStore: records as plain keys, index buckets as Redis lists.
//   - SQLStore: two-table key/value plus index layout over database/sql,
//     compatible with PostgreSQL and SQLite placeholders.
//   - CachedStore: read-through LRU decorator over any Store.
package store
