package ports

import (
	"context"
	"testing"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
// The store must be empty when the suite starts.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()

	newSnap := func(tick uint64) *domain.Snapshot {
		s := domain.NewSnapshot(tick)
		s.Matrices["H_0"] = domain.Matrix{Rows: 2, Cols: 2, Data: []float64{1, 0, 0, 1}}
		s.Vectors["solution_0"] = []float64{float64(tick), -1.5}
		return s
	}

	t.Run("Empty Store", func(t *testing.T) {
		_, err := store.Latest(ctx)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

		ticks, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ticks)
	})

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSnap(7)))

		loaded, err := store.Load(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), loaded.Tick)
		require.Contains(t, loaded.Matrices, "H_0")
		assert.Equal(t, 2, loaded.Matrices["H_0"].Rows)
		assert.Equal(t, []float64{1, 0, 0, 1}, loaded.Matrices["H_0"].Data)
		assert.Equal(t, []float64{7, -1.5}, loaded.Vectors["solution_0"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newSnap(7)
		s.Vectors["solution_0"] = []float64{42}
		require.NoError(t, store.Save(ctx, s))

		loaded, err := store.Load(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []float64{42}, loaded.Vectors["solution_0"])
	})

	t.Run("List and Latest", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSnap(12)))
		require.NoError(t, store.Save(ctx, newSnap(3)))

		ticks, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 7, 12}, ticks)

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), latest.Tick)
	})
}
