package runtime

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/aretw0/sot/pkg/qp"
	"gonum.org/v1/gonum/mat"
)

// level owns the QP of one priority level across ticks.
type level struct {
	index   int
	handle  domain.TaskHandle
	problem *qp.Problem

	// last tick
	taskID      string
	a           *mat.Dense
	solution    []float64
	constraints int
	residual    float64
}

// qpData is the assembled problem of one level.
type qpData struct {
	h      *mat.Dense
	g      []float64
	a      *mat.Dense
	lA, uA []float64
	l, u   []float64
}

// objective builds H = AᵀWA and g = -AᵀW(lambda*b).
func objective(t ports.Task, n int) (*mat.Dense, []float64, error) {
	a := t.A()
	if linalg.Rows(a) > 0 && linalg.Cols(a) != n {
		return nil, nil, fmt.Errorf("%w: task %s has %d columns, want %d", domain.ErrShapeMismatch, t.ID(), linalg.Cols(a), n)
	}
	if len(t.B()) != linalg.Rows(a) {
		return nil, nil, fmt.Errorf("%w: task %s has %d rows and %d targets", domain.ErrShapeMismatch, t.ID(), linalg.Rows(a), len(t.B()))
	}
	w := t.Weight()
	h := linalg.Gram(a, w, n)
	wb := linalg.Scale(t.Lambda(), t.B())
	if w != nil {
		wb = linalg.MulVec(w, wb)
	}
	g := linalg.Scale(-1, linalg.MulTransVec(a, wb, n))
	return h, g, nil
}

// feasibleSet translates constraints into general rows and intersected bounds.
type feasibleSet struct {
	n      int
	infty  float64
	rows   []*mat.Dense
	lA, uA [][]float64
	l, u   []float64
}

func newFeasibleSet(n int, infty float64) *feasibleSet {
	return &feasibleSet{n: n, infty: infty, l: linalg.Filled(n, -infty), u: linalg.Filled(n, infty)}
}

func (f *feasibleSet) add(c ports.Constraint) error {
	if c.XSize() != f.n {
		return fmt.Errorf("%w: constraint %s has %d variables, want %d", domain.ErrShapeMismatch, c.ID(), c.XSize(), f.n)
	}
	if lb := c.LowerBound(); len(lb) > 0 {
		for i, v := range lb {
			if v > f.l[i] {
				f.l[i] = v
			}
		}
	}
	if ub := c.UpperBound(); len(ub) > 0 {
		for i, v := range ub {
			if v < f.u[i] {
				f.u[i] = v
			}
		}
	}
	if aeq := c.Aeq(); linalg.Rows(aeq) > 0 {
		f.push(aeq, c.Beq(), c.Beq())
	}
	if aineq := c.Aineq(); linalg.Rows(aineq) > 0 {
		r := linalg.Rows(aineq)
		lo, hi := c.BLowerBound(), c.BUpperBound()
		if len(lo) == 0 {
			lo = linalg.Filled(r, -f.infty)
		}
		if len(hi) == 0 {
			hi = linalg.Filled(r, f.infty)
		}
		f.push(aineq, lo, hi)
	}
	return nil
}

func (f *feasibleSet) push(a *mat.Dense, lo, hi []float64) {
	f.rows = append(f.rows, a)
	f.lA = append(f.lA, lo)
	f.uA = append(f.uA, hi)
}

func (f *feasibleSet) build() (a *mat.Dense, lA, uA, l, u []float64, err error) {
	a, err = linalg.VStack(f.rows...)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return a, linalg.Concat(f.lA...), linalg.Concat(f.uA...), f.l, f.u, nil
}

func (l *level) report(problem *qp.Problem) domain.LevelReport {
	r := domain.LevelReport{
		Level:       l.index,
		TaskID:      l.taskID,
		Variables:   problem.Shape().Variables,
		Constraints: l.constraints,
		Residual:    l.residual,
		Solution:    linalg.CloneVec(l.solution),
	}
	if problem.State() != qp.StateUninitialized {
		r.Tier = problem.LastTier().String()
		r.Iterations = problem.Iterations()
	}
	return r
}
