package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	snap := domain.NewSnapshot(1)
	snap.Vectors["x"] = []float64{1, 2}
	require.NoError(t, store.Save(ctx, snap))

	snap.Vectors["x"][0] = 99
	loaded, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, loaded.Vectors["x"])

	loaded.Vectors["x"][1] = 99
	again, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, again.Vectors["x"])
}

func TestMemoryStore_Limit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithLimit(2))

	for tick := uint64(1); tick <= 4; tick++ {
		require.NoError(t, store.Save(ctx, domain.NewSnapshot(tick)))
	}

	ticks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4}, ticks)
}
