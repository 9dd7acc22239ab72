package dsl

import (
	"fmt"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// LevelBuilder provides a fluent API for configuring one priority level.
type LevelBuilder struct {
	builder *Builder
	index   int
	tasks   []ports.Task
	handles []domain.TaskHandle
}

// Lambda sets the gain of every task on the level.
func (l *LevelBuilder) Lambda(lambda float64) *LevelBuilder {
	for _, t := range l.tasks {
		if err := t.SetLambda(lambda); err != nil {
			l.fail(err)
		}
	}
	return l
}

// Weight sets the weight of every task on the level.
func (l *LevelBuilder) Weight(w *mat.Dense) *LevelBuilder {
	for _, t := range l.tasks {
		wt, ok := t.(interface{ SetWeight(*mat.Dense) error })
		if !ok {
			l.fail(fmt.Errorf("%w: task %s has a fixed weight", domain.ErrValidation, t.ID()))
			continue
		}
		if err := wt.SetWeight(w); err != nil {
			l.fail(err)
		}
	}
	return l
}

// Constrain attaches constraints to every task on the level.
func (l *LevelBuilder) Constrain(hs ...domain.ConstraintHandle) *LevelBuilder {
	for _, t := range l.tasks {
		ct, ok := t.(interface{ AddConstraint(domain.ConstraintHandle) })
		if !ok {
			l.fail(fmt.Errorf("%w: task %s does not accept constraints", domain.ErrValidation, t.ID()))
			continue
		}
		for _, h := range hs {
			ct.AddConstraint(h)
		}
	}
	return l
}

// Handles returns the registry handles of the level tasks.
func (l *LevelBuilder) Handles() []domain.TaskHandle {
	return append([]domain.TaskHandle(nil), l.handles...)
}

func (l *LevelBuilder) fail(err error) {
	l.builder.errs = append(l.builder.errs, fmt.Errorf("level %d: %w", l.index, err))
}
