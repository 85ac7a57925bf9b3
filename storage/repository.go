// Package storage provides the key-value persistence layer used for the
// browser-local session record and for the development backend's data.
package storage

import "errors"

var (
	// ErrNotFound is returned when a key does not exist in a bucket.
	ErrNotFound = errors.New("record not found")
	// ErrBucketNotFound is returned when a bucket has never been written.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrQuotaExceeded is returned when a write would exceed the store's
	// configured capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// IsNotFound reports whether err means the record or its bucket is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBucketNotFound)
}

// BatchTx provides reads and writes within an atomic transaction.
// The bucket is scoped to the batch, so methods don't require it.
type BatchTx interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Repository defines the interface for bucketed key-value storage.
// Values are opaque bytes; callers own their encoding.
type Repository interface {
	Put(bucket string, key string, value []byte) error
	Get(bucket string, key string) ([]byte, error)
	Delete(bucket string, key string) error
	List(bucket string) ([]string, error)
	Batch(bucket string, fn func(tx BatchTx) error) error
}
