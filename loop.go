package sot

import (
	"context"
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
)

// Loop integrates the solver output on a simulated state: q <- q + dq.
// This allows for easy testing and for driving a solver without a robot.
type Loop struct {
	Solver *Solver
	// Ticks bounds the number of iterations. Zero means until convergence or cancellation.
	Ticks int
	// Tolerance stops the loop once the largest command element falls below it. Zero disables it.
	Tolerance float64
	// OnTick is called after every integration step.
	OnTick func(tick int, q, dq []float64)
}

// NewLoop creates a loop around solver.
func NewLoop(solver *Solver) *Loop {
	return &Loop{Solver: solver}
}

// Run integrates from q0 and returns the final state.
func (l *Loop) Run(ctx context.Context, q0 []float64) ([]float64, error) {
	if l.Solver == nil {
		return nil, fmt.Errorf("loop has no solver")
	}
	if l.Ticks <= 0 && l.Tolerance <= 0 {
		return nil, fmt.Errorf("loop needs Ticks or Tolerance to terminate")
	}
	q := linalg.CloneVec(q0)
	for i := 0; l.Ticks <= 0 || i < l.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return q, err
		}
		dq, err := l.Solver.Tick(ctx, q)
		if err != nil {
			return q, fmt.Errorf("tick %d: %w", i, err)
		}
		q = linalg.Add(q, dq)
		if l.OnTick != nil {
			l.OnTick(i, linalg.CloneVec(q), dq)
		}
		if l.Tolerance > 0 && linalg.NormInf(dq) < l.Tolerance {
			break
		}
	}
	return q, nil
}
