package task

import (
	"fmt"
	"strings"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Aggregated combines several tasks into one priority level.
//
//	A = [A_1; ...; A_k]   b = [l_1 b_1; ...; l_k b_k]   W = blkdiag(W_1, ..., W_k)
//
// Its own constraints come first, followed by the constraints of every
// sub-task, with repeated handles removed.
type Aggregated struct {
	*Base
	arena ports.Arena
	subs  []domain.TaskHandle
}

// NewAggregated creates the aggregation of the given sub-tasks over xSize
// variables. Every sub-task must have xSize variables. The matrices are
// combined once at construction.
func NewAggregated(arena ports.Arena, subs []domain.TaskHandle, xSize int, opts ...Option) (*Aggregated, error) {
	ids := make([]string, 0, len(subs))
	for _, h := range subs {
		t, err := arena.Task(h)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
		if t.XSize() != xSize {
			return nil, fmt.Errorf("%w: aggregate: task %s has %d variables, want %d", domain.ErrValidation, t.ID(), t.XSize(), xSize)
		}
		ids = append(ids, t.ID())
	}
	agg := &Aggregated{
		Base:  NewBase(strings.Join(ids, "plus"), xSize, opts...),
		arena: arena,
		subs:  append([]domain.TaskHandle(nil), subs...),
	}
	agg.src = arena
	if err := agg.Recombine(); err != nil {
		return nil, err
	}
	return agg, nil
}

// SubTasks returns the aggregated task handles in order.
func (a *Aggregated) SubTasks() []domain.TaskHandle {
	return append([]domain.TaskHandle(nil), a.subs...)
}

// Update updates every sub-task and the own constraints at x, then recombines.
func (a *Aggregated) Update(x []float64) error {
	for _, h := range a.subs {
		t, err := a.arena.Task(h)
		if err != nil {
			return fmt.Errorf("%s: %w", a.id, err)
		}
		if err := t.Update(x); err != nil {
			return fmt.Errorf("%s: %w", a.id, err)
		}
	}
	if err := a.UpdateConstraints(x); err != nil {
		return err
	}
	return a.Recombine()
}

// Recombine rebuilds A, b and the weight from the current sub-task values
// without updating the sub-tasks.
func (a *Aggregated) Recombine() error {
	as := make([]*mat.Dense, 0, len(a.subs))
	bs := make([][]float64, 0, len(a.subs))
	ws := make([]*mat.Dense, 0, len(a.subs))
	for _, h := range a.subs {
		t, err := a.arena.Task(h)
		if err != nil {
			return fmt.Errorf("%s: %w", a.id, err)
		}
		as = append(as, t.A())
		bs = append(bs, linalg.Scale(t.Lambda(), t.B()))
		ws = append(ws, t.Weight())
	}
	stacked, err := linalg.VStack(as...)
	if err != nil {
		return fmt.Errorf("%s: %w", a.id, err)
	}
	if err := a.SetTask(stacked, linalg.Concat(bs...)); err != nil {
		return err
	}
	a.weight = linalg.BlockDiag(ws...)
	return nil
}

// BindConstraints keeps the arena as the constraint source.
func (a *Aggregated) BindConstraints(ports.ConstraintSource) {}

// OwnConstraints returns the constraints attached to the aggregation itself.
func (a *Aggregated) OwnConstraints() []domain.ConstraintHandle {
	return a.Base.Constraints()
}

// AggregatedConstraints returns the constraints of the sub-tasks, in sub-task
// order and without repeats. Nested aggregations contribute theirs transitively.
func (a *Aggregated) AggregatedConstraints() []domain.ConstraintHandle {
	lists := make([][]domain.ConstraintHandle, 0, len(a.subs))
	for _, h := range a.subs {
		if t, err := a.arena.Task(h); err == nil {
			lists = append(lists, t.Constraints())
		}
	}
	return domain.DedupConstraints(lists...)
}

// Constraints returns the own constraints followed by the aggregated ones, without repeats.
func (a *Aggregated) Constraints() []domain.ConstraintHandle {
	return domain.DedupConstraints(a.OwnConstraints(), a.AggregatedConstraints())
}
