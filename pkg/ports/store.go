package ports

import (
	"context"

	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// DiagnosticSink receives the named matrices and vectors of a tick.
// Entries added between two Flush calls belong to the same snapshot.
type DiagnosticSink interface {
	AddMatrix(name string, m *mat.Dense)
	AddVector(name string, v []float64)

	// Flush closes the current snapshot under the given tick.
	Flush(ctx context.Context, tick uint64) error
}

// SnapshotStore defines the interface for persisting diagnostic snapshots.
type SnapshotStore interface {
	// Save persists a snapshot, replacing any previous one with the same tick.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot of a tick.
	// Returns domain.ErrSnapshotNotFound if it does not exist.
	Load(ctx context.Context, tick uint64) (*domain.Snapshot, error)

	// Latest retrieves the snapshot with the highest tick.
	// Returns domain.ErrSnapshotNotFound if the store is empty.
	Latest(ctx context.Context) (*domain.Snapshot, error)

	// List returns every stored tick in ascending order.
	List(ctx context.Context) ([]uint64, error)
}
