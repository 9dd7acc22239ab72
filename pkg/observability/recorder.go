package observability

import (
	"context"
	"sync"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Recorder implements ports.DiagnosticSink. It collects the entries of a tick
// and saves them as one snapshot on Flush. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	store   ports.SnapshotStore
	current *domain.Snapshot
	every   uint64
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSampling keeps one tick out of n. Ticks are kept when tick % n == 0.
func WithSampling(n uint64) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.every = n
		}
	}
}

// NewRecorder creates a recorder saving into store.
func NewRecorder(store ports.SnapshotStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, every: 1}
	for _, opt := range opts {
		opt(r)
	}
	r.current = domain.NewSnapshot(0)
	return r
}

// AddMatrix copies m into the pending snapshot. A nil matrix is stored as 0x0.
func (r *Recorder) AddMatrix(name string, m *mat.Dense) {
	rows, cols, data := linalg.Raw(m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Matrices[name] = domain.Matrix{Rows: rows, Cols: cols, Data: data}
}

// AddVector copies v into the pending snapshot.
func (r *Recorder) AddVector(name string, v []float64) {
	cp := make([]float64, len(v))
	copy(cp, v)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Vectors[name] = cp
}

// Flush saves the pending snapshot under tick and starts a new one.
func (r *Recorder) Flush(ctx context.Context, tick uint64) error {
	r.mu.Lock()
	snap := r.current
	r.current = domain.NewSnapshot(0)
	r.mu.Unlock()

	if tick%r.every != 0 {
		return nil
	}
	snap.Tick = tick
	return r.store.Save(ctx, snap)
}
