// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"sort"
	"sync"

	"github.com/jmcleod/eventdesk/internal/util"
	"github.com/jmcleod/eventdesk/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu    sync.RWMutex
	data  map[string]map[string][]byte
	quota int
	used  int
}

var _ storage.Repository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithQuota caps the total number of key and value bytes the repository
// will hold. Writes past the cap fail with storage.ErrQuotaExceeded, the
// way browser storage does when its quota is reached. Zero means no cap.
func WithQuota(bytes int) Option {
	return func(r *Repository) {
		r.quota = bytes
	}
}

// NewRepository creates a new empty in-memory Repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{data: make(map[string]map[string][]byte)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Put(bucket, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(bucket, key, value)
}

func (r *Repository) putLocked(bucket, key string, value []byte) error {
	b, ok := r.data[bucket]
	if !ok {
		b = make(map[string][]byte)
		r.data[bucket] = b
	}
	delta := len(key) + len(value)
	if old, exists := b[key]; exists {
		delta -= len(key) + len(old)
	}
	if r.quota > 0 && r.used+delta > r.quota {
		return storage.ErrQuotaExceeded
	}
	b[key] = util.CopyBytes(value)
	r.used += delta
	return nil
}

func (r *Repository) Get(bucket, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(bucket, key)
}

func (r *Repository) getLocked(bucket, key string) ([]byte, error) {
	b, ok := r.data[bucket]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	v, ok := b[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return util.CopyBytes(v), nil
}

func (r *Repository) List(bucket string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.data[bucket]))
	for k := range r.data[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repository) Delete(bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(bucket, key)
}

func (r *Repository) deleteLocked(bucket, key string) error {
	b, ok := r.data[bucket]
	if !ok {
		return storage.ErrBucketNotFound
	}
	v, ok := b[key]
	if !ok {
		return storage.ErrNotFound
	}
	r.used -= len(key) + len(v)
	delete(b, key)
	return nil
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(bucket string, fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, used := r.snapshotBucket(bucket), r.used

	tx := &memoryBatchTx{repo: r, bucket: bucket}
	if err := fn(tx); err != nil {
		r.restoreBucket(bucket, snapshot)
		r.used = used
		return err
	}
	return nil
}

func (r *Repository) snapshotBucket(bucket string) map[string][]byte {
	original, ok := r.data[bucket]
	if !ok {
		return nil
	}
	cp := make(map[string][]byte, len(original))
	for k, v := range original {
		cp[k] = util.CopyBytes(v)
	}
	return cp
}

func (r *Repository) restoreBucket(bucket string, snapshot map[string][]byte) {
	if snapshot == nil {
		delete(r.data, bucket)
	} else {
		r.data[bucket] = snapshot
	}
}

type memoryBatchTx struct {
	repo   *Repository
	bucket string
}

func (tx *memoryBatchTx) Get(key string) ([]byte, error) {
	return tx.repo.getLocked(tx.bucket, key)
}

func (tx *memoryBatchTx) Put(key string, value []byte) error {
	return tx.repo.putLocked(tx.bucket, key, value)
}

func (tx *memoryBatchTx) Delete(key string) error {
	return tx.repo.deleteLocked(tx.bucket, key)
}
