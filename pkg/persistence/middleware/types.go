package middleware

import (
	"context"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
)

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies the middlewares so that the first one sees a snapshot first.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// passthrough forwards the read side of the store.
type passthrough struct {
	next ports.SnapshotStore
}

func (p passthrough) Load(ctx context.Context, tick uint64) (*domain.Snapshot, error) {
	return p.next.Load(ctx, tick)
}

func (p passthrough) Latest(ctx context.Context) (*domain.Snapshot, error) {
	return p.next.Latest(ctx)
}

func (p passthrough) List(ctx context.Context) ([]uint64, error) {
	return p.next.List(ctx)
}
