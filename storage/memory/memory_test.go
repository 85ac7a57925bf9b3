package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/storage"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewRepository()
	bucket := "local"

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Put(bucket, "session", []byte(`{"role":"guest"}`)))

		got, err := repo.Get(bucket, "session")
		require.NoError(t, err)
		assert.Equal(t, `{"role":"guest"}`, string(got))

		// Returned slices must not alias stored data.
		got[0] = 'X'
		again, err := repo.Get(bucket, "session")
		require.NoError(t, err)
		assert.Equal(t, byte('{'), again[0])
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := repo.Get("nonexistent", "session")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)

		_, err = repo.Get(bucket, "nonexistent")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.True(t, storage.IsNotFound(err))
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, repo.Put(bucket, "location", []byte("/events")))
		keys, err := repo.List(bucket)
		require.NoError(t, err)
		assert.Equal(t, []string{"location", "session"}, keys)

		keys, err = repo.List("empty")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(bucket, "location"))
		_, err := repo.Get(bucket, "location")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = repo.Delete(bucket, "location")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryRepository_BatchRollback(t *testing.T) {
	repo := NewRepository()
	require.NoError(t, repo.Put("events", "e1", []byte("v1")))

	boom := errors.New("boom")
	err := repo.Batch("events", func(tx storage.BatchTx) error {
		if err := tx.Put("e1", []byte("v2")); err != nil {
			return err
		}
		if err := tx.Put("e2", []byte("new")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.Get("events", "e1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	_, err = repo.Get("events", "e2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryRepository_BatchCommit(t *testing.T) {
	repo := NewRepository()
	err := repo.Batch("events", func(tx storage.BatchTx) error {
		if err := tx.Put("e1", []byte("v1")); err != nil {
			return err
		}
		v, err := tx.Get("e1")
		if err != nil {
			return err
		}
		return tx.Put("copy", v)
	})
	require.NoError(t, err)

	got, err := repo.Get("events", "copy")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestMemoryRepository_Quota(t *testing.T) {
	repo := NewRepository(WithQuota(16))

	require.NoError(t, repo.Put("local", "k", []byte("0123456789")))
	err := repo.Put("local", "k2", []byte("0123456789"))
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

	// Overwriting an existing key only counts the size difference.
	require.NoError(t, repo.Put("local", "k", []byte("01234567890123")))

	// Deleting frees space.
	require.NoError(t, repo.Delete("local", "k"))
	require.NoError(t, repo.Put("local", "k2", []byte("0123456789")))
}
