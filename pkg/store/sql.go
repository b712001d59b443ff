package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLStore is a Store over database/sql using a two-table key/value layout:
// one table for primary records, one for index bucket memberships. The
// statements use $n placeholders and standard upserts, which both PostgreSQL
// (lib/pq) and SQLite (mattn/go-sqlite3) accept.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the backing tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fedbridge_records (
			store_key   TEXT PRIMARY KEY,
			store_value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fedbridge_index (
			index_bucket TEXT NOT NULL,
			store_key    TEXT NOT NULL,
			pos          INTEGER NOT NULL,
			PRIMARY KEY (index_bucket, store_key)
		)
	`)
	if err != nil {
		return fmt.Errorf("create index table: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT store_value FROM fedbridge_records WHERE store_key = $1`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	return value, nil
}

// Put implements Store.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, indexes ...Index) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fedbridge_records (store_key, store_value) VALUES ($1, $2)
		ON CONFLICT (store_key) DO UPDATE SET store_value = excluded.store_value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	for _, ix := range indexes {
		// pos preserves insertion order within the bucket; the conflict
		// clause keeps re-puts from duplicating memberships.
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO fedbridge_index (index_bucket, store_key, pos)
			SELECT $1, $2, COALESCE(MAX(pos), 0) + 1 FROM fedbridge_index WHERE index_bucket = $1
			ON CONFLICT (index_bucket, store_key) DO NOTHING
		`, ix.BucketKey(), key)
		if err != nil {
			return fmt.Errorf("insert index member: %w", err)
		}
	}
	return nil
}

// GetByIndex implements Store.
func (s *SQLStore) GetByIndex(ctx context.Context, index Index) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.store_value FROM fedbridge_records r
		JOIN fedbridge_index i ON i.store_key = r.store_key
		WHERE i.index_bucket = $1
		ORDER BY i.pos
	`, index.BucketKey())
	if err != nil {
		return nil, fmt.Errorf("select by index: %w", err)
	}
	defer rows.Close()

	values := make([][]byte, 0)
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM fedbridge_records WHERE store_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	// Best-effort index cleanup after the primary delete.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM fedbridge_index WHERE store_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete index members: %w", err)
	}
	return nil
}

// DeleteByIndex implements Store.
func (s *SQLStore) DeleteByIndex(ctx context.Context, index Index) error {
	bucket := index.BucketKey()
	rows, err := s.db.QueryContext(ctx,
		`SELECT store_key FROM fedbridge_index WHERE index_bucket = $1 ORDER BY pos`, bucket)
	if err != nil {
		return fmt.Errorf("select index members: %w", err)
	}
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return fmt.Errorf("scan index member: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM fedbridge_index WHERE index_bucket = $1`, bucket)
	if err != nil {
		return fmt.Errorf("delete index bucket: %w", err)
	}
	return nil
}

// ReconcileIndexes implements Reconciler.
func (s *SQLStore) ReconcileIndexes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM fedbridge_index
		WHERE store_key NOT IN (SELECT store_key FROM fedbridge_records)
	`)
	if err != nil {
		return 0, fmt.Errorf("reconcile indexes: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(removed), nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
