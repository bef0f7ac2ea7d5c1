package db_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/db"
	"go.trai.ch/forge/internal/core/ports"
)

func TestStore_PutAndGet(t *testing.T) {
	store, err := db.Open(db.Config{InMemory: true, SchemaVersion: 1})
	require.NoError(t, err)
	defer store.Close()

	key := []byte("Nmain.o")
	result := &ports.BuildResult{
		Value: []byte{1, 2, 3},
		Deps: []ports.DependencyRecord{
			{Key: []byte("Ca"), Value: []byte{4}},
			{Key: []byte("Nb"), Value: nil},
		},
	}
	require.NoError(t, store.SetResult(key, result))

	got, err := store.GetResult(key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.Value, got.Value)
	require.Len(t, got.Deps, 2)
	assert.Equal(t, []byte("Ca"), got.Deps[0].Key)
	assert.Equal(t, []byte{4}, got.Deps[0].Value)
	assert.Equal(t, []byte("Nb"), got.Deps[1].Key)
	assert.Empty(t, got.Deps[1].Value)
}

func TestStore_GetMissing(t *testing.T) {
	store, err := db.Open(db.Config{InMemory: true, SchemaVersion: 1})
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetResult([]byte("absent"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Persistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	store1, err := db.Open(db.Config{Path: dir, SchemaVersion: 1})
	require.NoError(t, err)
	require.NoError(t, store1.SetResult([]byte("k"), &ports.BuildResult{Value: []byte("v")}))
	require.NoError(t, store1.Close())

	store2, err := db.Open(db.Config{Path: dir, SchemaVersion: 1})
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetResult([]byte("k"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestStore_SchemaMismatchForcesColdRebuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	store1, err := db.Open(db.Config{Path: dir, SchemaVersion: 1})
	require.NoError(t, err)
	require.NoError(t, store1.SetResult([]byte("k"), &ports.BuildResult{Value: []byte("v")}))
	require.NoError(t, store1.Close())

	// A different merged schema version wipes the store.
	store2, err := db.Open(db.Config{Path: dir, SchemaVersion: 2})
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetResult([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, got)
}
