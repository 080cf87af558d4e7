package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoStoreSetGet(t *testing.T) {
	asserts := assert.New(t)
	store := NewMemoStore()

	asserts.NoError(store.Set("key", "value", 0))
	v, ok := store.Get("key")
	asserts.True(ok)
	asserts.Equal("value", v)

	_, ok = store.Get("missing")
	asserts.False(ok)
}

func TestMemoStoreTTL(t *testing.T) {
	asserts := assert.New(t)
	store := NewMemoStore()

	store.Store.Store("expiring", itemWithTTL{Value: "v", Expires: time.Now().Add(-time.Second).Unix()})
	_, ok := store.Get("expiring")
	asserts.False(ok)

	asserts.NoError(store.Set("kept", "v", 3600))
	_, ok = store.Get("kept")
	asserts.True(ok)
}

func TestMemoStoreGetsSets(t *testing.T) {
	asserts := assert.New(t)
	store := NewMemoStore()

	asserts.NoError(store.Sets(map[string]any{"1": "a", "2": "b"}, "pre_"))
	values, missed := store.Gets([]string{"1", "2", "3"}, "pre_")
	asserts.Len(values, 2)
	asserts.Equal([]string{"3"}, missed)
}

func TestMemoStoreDeleteAndKeys(t *testing.T) {
	asserts := assert.New(t)
	store := NewMemoStore()

	asserts.NoError(store.Set("prop:/a", "1", 0))
	asserts.NoError(store.Set("prop:/b", "2", 0))
	asserts.NoError(store.Set("lock:/c", "3", 0))

	keys, err := store.Keys("prop:")
	asserts.NoError(err)
	asserts.Len(keys, 2)

	asserts.NoError(store.Delete("prop:", "/a"))
	_, ok := store.Get("prop:/a")
	asserts.False(ok)

	asserts.NoError(store.Delete("prop:"))
	keys, _ = store.Keys("prop:")
	asserts.Len(keys, 0)
	_, ok = store.Get("lock:/c")
	asserts.True(ok)

	asserts.NoError(store.DeleteAll())
	_, ok = store.Get("lock:/c")
	asserts.False(ok)
}

func TestMemoStorePersistRestore(t *testing.T) {
	asserts := assert.New(t)
	path := filepath.Join(t.TempDir(), "cache_persist.bin")

	store := NewMemoStore()
	asserts.NoError(store.Set("key", "value", 0))
	asserts.NoError(store.Set("ttl", "v", 1))
	asserts.NoError(store.Persist(path))

	restored := NewMemoStore()
	asserts.NoError(restored.Restore(path))
	v, ok := restored.Get("key")
	asserts.True(ok)
	asserts.Equal("value", v)
}

func TestMemoStoreGarbageCollect(t *testing.T) {
	asserts := assert.New(t)
	store := NewMemoStore()

	store.Store.Store("old", itemWithTTL{Value: "x", Expires: time.Now().Add(-time.Hour).Unix()})
	asserts.NoError(store.Set("fresh", "y", 3600))

	store.GarbageCollect()

	_, ok := store.Store.Load("old")
	asserts.False(ok)
	_, ok = store.Get("fresh")
	asserts.True(ok)
}
