// Package postgres implements storage.Repository backed by PostgreSQL.
//
// Every bucket/key pair is one row of the kv_records table, mirroring the
// key space used by the BBolt and in-memory backends.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	upsertSQL = `INSERT INTO kv_records (bucket, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (bucket, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	selectSQL = `SELECT value FROM kv_records WHERE bucket = $1 AND key = $2`
	// lockSQL reads inside a batch; concurrent batches on the same row
	// serialise on it until commit.
	lockSQL   = selectSQL + ` FOR UPDATE`
	deleteSQL = `DELETE FROM kv_records WHERE bucket = $1 AND key = $2`
	listSQL   = `SELECT key FROM kv_records WHERE bucket = $1 ORDER BY key`
)

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given database handle.
// The schema must already exist; see EnsureSchema.
func NewRepository(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewRepositoryFromDSN opens a connection, ensures the schema exists, and
// returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewRepository(db), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func put(ctx context.Context, e execer, bucket, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := e.ExecContext(ctx, upsertSQL, bucket, key, value); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func get(ctx context.Context, e execer, query, bucket, key string) ([]byte, error) {
	var value []byte
	err := e.QueryRowContext(ctx, query, bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return value, nil
}

func del(ctx context.Context, e execer, bucket, key string) error {
	res, err := e.ExecContext(ctx, deleteSQL, bucket, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) Put(bucket, key string, value []byte) error {
	return put(context.Background(), s.db, bucket, key, value)
}

func (s *Store) Get(bucket, key string) ([]byte, error) {
	return get(context.Background(), s.db, selectSQL, bucket, key)
}

func (s *Store) Delete(bucket, key string) error {
	return del(context.Background(), s.db, bucket, key)
}

func (s *Store) List(bucket string) ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(), listSQL, bucket)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", bucket, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Batch(bucket string, fn func(tx storage.BatchTx) error) error {
	ctx := context.Background()
	// Row locks cover keys that exist; serializable isolation also catches
	// two batches inserting the same missing key (the email index).
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&pgBatchTx{ctx: ctx, tx: tx, bucket: bucket}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgBatchTx struct {
	ctx    context.Context
	tx     *sql.Tx
	bucket string
}

var _ storage.BatchTx = (*pgBatchTx)(nil)

func (btx *pgBatchTx) Get(key string) ([]byte, error) {
	return get(btx.ctx, btx.tx, lockSQL, btx.bucket, key)
}

func (btx *pgBatchTx) Put(key string, value []byte) error {
	return put(btx.ctx, btx.tx, btx.bucket, key, value)
}

func (btx *pgBatchTx) Delete(key string) error {
	return del(btx.ctx, btx.tx, btx.bucket, key)
}
