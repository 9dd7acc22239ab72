package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.NewSnapshot(3)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), latest.Tick)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshots.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	snap := domain.NewSnapshot(8)
	snap.Vectors["solution_0"] = []float64{0.5}
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, loaded.Vectors["solution_0"])
}

func TestSQLiteStore_OpenFailure(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}

	_, err := New(filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database")
}
