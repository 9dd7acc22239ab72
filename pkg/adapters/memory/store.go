package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/sot/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data  map[uint64]*domain.Snapshot
	limit int
	mu    sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLimit keeps at most n snapshots, evicting the lowest ticks first.
func WithLimit(n int) Option {
	return func(s *Store) {
		s.limit = n
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[uint64]*domain.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a copy of the snapshot.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	cp := clone(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.Tick] = cp
	if s.limit > 0 {
		for len(s.data) > s.limit {
			delete(s.data, s.ticks()[0])
		}
	}
	return nil
}

// Load retrieves a copy of the snapshot of a tick.
func (s *Store) Load(ctx context.Context, tick uint64) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[tick]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return clone(snap), nil
}

// Latest retrieves the snapshot with the highest tick.
func (s *Store) Latest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks := s.ticks()
	if len(ticks) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	return clone(s.data[ticks[len(ticks)-1]]), nil
}

// List returns the stored ticks in ascending order.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks(), nil
}

func (s *Store) ticks() []uint64 {
	ticks := make([]uint64, 0, len(s.data))
	for t := range s.data {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

// clone deep copies a snapshot so callers can't mutate stored data.
func clone(snap *domain.Snapshot) *domain.Snapshot {
	cp := &domain.Snapshot{
		Tick:      snap.Tick,
		CreatedAt: snap.CreatedAt,
		Matrices:  make(map[string]domain.Matrix, len(snap.Matrices)),
		Vectors:   make(map[string][]float64, len(snap.Vectors)),
	}
	for k, m := range snap.Matrices {
		data := make([]float64, len(m.Data))
		copy(data, m.Data)
		cp.Matrices[k] = domain.Matrix{Rows: m.Rows, Cols: m.Cols, Data: data}
	}
	for k, v := range snap.Vectors {
		data := make([]float64, len(v))
		copy(data, v)
		cp.Vectors[k] = data
	}
	return cp
}
