package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT store_value FROM fedbridge_records WHERE store_key = $1`)).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}).AddRow([]byte("one")))

	value, err := s.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT store_value FROM fedbridge_records`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}))

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorePutWithIndexes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO fedbridge_records (store_key, store_value) VALUES ($1, $2)`)).
		WithArgs("k1", []byte("one")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO fedbridge_index (index_bucket, store_key, pos)`)).
		WithArgs(ix.BucketKey(), "k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), "k1", []byte("one"), ix))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetByIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT r.store_value FROM fedbridge_records r`)).
		WithArgs(ix.BucketKey()).
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}).
			AddRow([]byte("one")).
			AddRow([]byte("two")))

	values, err := s.GetByIndex(context.Background(), ix)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, []byte("one"), values[0])
	assert.Equal(t, []byte("two"), values[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_records WHERE store_key = $1`)).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_index WHERE store_key = $1`)).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "k1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreDeleteByIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	ix := Index{Name: "tenantProduct", Value: "acme.com:demo"}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT store_key FROM fedbridge_index WHERE index_bucket = $1`)).
		WithArgs(ix.BucketKey()).
		WillReturnRows(sqlmock.NewRows([]string{"store_key"}).AddRow("k1"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_records WHERE store_key = $1`)).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_index WHERE store_key = $1`)).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_index WHERE index_bucket = $1`)).
		WithArgs(ix.BucketKey()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteByIndex(context.Background(), ix))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreReconcileIndexes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewSQLStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fedbridge_index`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := s.ReconcileIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
