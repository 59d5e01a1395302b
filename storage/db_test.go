package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	level, err := Open(BackendLevelDB, t.TempDir())
	require.NoError(t, err)
	bolt, err := Open(BackendBolt, t.TempDir())
	require.NoError(t, err)
	mem, err := Open(BackendMemory, "")
	require.NoError(t, err)
	dbs := map[string]Database{"memory": mem, "leveldb": level, "bolt": bolt}
	t.Cleanup(func() {
		for _, db := range dbs {
			db.Close()
		}
	})
	return dbs
}

func TestDatabaseContract(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, db.Put([]byte("acct:b"), []byte("2")))
			require.NoError(t, db.Put([]byte("acct:a"), []byte("1")))
			require.NoError(t, db.Put([]byte("meta:x"), []byte("9")))

			value, err := db.Get([]byte("acct:a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), value)

			var keys []string
			require.NoError(t, db.Iterate([]byte("acct:"), func(key, value []byte) bool {
				keys = append(keys, string(key))
				return true
			}))
			require.Equal(t, []string{"acct:a", "acct:b"}, keys)

			require.NoError(t, db.Delete([]byte("acct:a")))
			_, err = db.Get([]byte("acct:a"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestBatchAppliesTogether(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("gone"), []byte("x")))

			batch := db.NewBatch()
			batch.Put([]byte("k1"), []byte("v1"))
			batch.Put([]byte("k2"), []byte("v2"))
			batch.Delete([]byte("gone"))
			require.Equal(t, 3, batch.Len())

			_, err := db.Get([]byte("k1"))
			require.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, batch.Write())
			v, err := db.Get([]byte("k2"))
			require.NoError(t, err)
			require.Equal(t, []byte("v2"), v)
			_, err = db.Get([]byte("gone"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	require.Error(t, err)
	_, err = Open(BackendLevelDB, "")
	require.Error(t, err)
}
