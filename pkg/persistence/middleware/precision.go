package middleware

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
)

type precisionMiddleware struct {
	passthrough
	scale float64
}

// NewPrecisionMiddleware rounds every stored value to the given number of
// decimals. Snapshots of a long run shrink a lot once noise digits are gone.
func NewPrecisionMiddleware(decimals int) (Middleware, error) {
	if decimals < 0 || decimals > 15 {
		return nil, fmt.Errorf("%w: precision %d outside [0, 15]", domain.ErrValidation, decimals)
	}
	scale := math.Pow(10, float64(decimals))
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &precisionMiddleware{passthrough: passthrough{next: next}, scale: scale}
	}, nil
}

func (m *precisionMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	out := &domain.Snapshot{
		Tick:      snap.Tick,
		CreatedAt: snap.CreatedAt,
		Matrices:  make(map[string]domain.Matrix, len(snap.Matrices)),
		Vectors:   make(map[string][]float64, len(snap.Vectors)),
	}
	for k, v := range snap.Matrices {
		out.Matrices[k] = domain.Matrix{Rows: v.Rows, Cols: v.Cols, Data: m.round(v.Data)}
	}
	for k, v := range snap.Vectors {
		out.Vectors[k] = m.round(v)
	}
	return m.next.Save(ctx, out)
}

func (m *precisionMiddleware) round(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			out[i] = x
			continue
		}
		out[i] = math.Round(x*m.scale) / m.scale
	}
	return out
}
