package dsl

import (
	"errors"
	"fmt"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
)

// Builder manages the stack construction.
// Errors are collected and reported by Build.
type Builder struct {
	xSize  int
	reg    *registry.Registry
	levels []*LevelBuilder
	global []domain.ConstraintHandle
	errs   []error
}

// New creates a new stack builder over xSize variables.
func New(xSize int) *Builder {
	return &Builder{
		xSize: xSize,
		reg:   registry.NewRegistry(),
	}
}

// Registry exposes the arena the builder registers into.
func (b *Builder) Registry() *registry.Registry {
	return b.reg
}

// Constraint registers a constraint and returns its handle.
func (b *Builder) Constraint(c ports.Constraint) domain.ConstraintHandle {
	if c.XSize() != b.xSize {
		b.errs = append(b.errs, fmt.Errorf("%w: constraint %s has %d variables, want %d", domain.ErrValidation, c.ID(), c.XSize(), b.xSize))
	}
	return b.reg.AddConstraint(c)
}

// Global enforces constraints at every level.
func (b *Builder) Global(hs ...domain.ConstraintHandle) *Builder {
	b.global = append(b.global, hs...)
	return b
}

// Level appends a priority level below the previous ones. Several tasks on
// one level are aggregated with equal priority.
func (b *Builder) Level(tasks ...ports.Task) *LevelBuilder {
	lb := &LevelBuilder{builder: b, index: len(b.levels)}
	if len(tasks) == 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: level %d has no task", domain.ErrValidation, lb.index))
	}
	for _, t := range tasks {
		if t.XSize() != b.xSize {
			b.errs = append(b.errs, fmt.Errorf("%w: task %s has %d variables, want %d", domain.ErrValidation, t.ID(), t.XSize(), b.xSize))
		}
		lb.tasks = append(lb.tasks, t)
		lb.handles = append(lb.handles, b.reg.AddTask(t))
	}
	b.levels = append(b.levels, lb)
	return lb
}

// Result is the output of Build.
type Result struct {
	Registry *registry.Registry
	Stack    domain.Stack
	Global   []domain.ConstraintHandle
}

// Build validates the levels and compiles them into a stack.
func (b *Builder) Build() (*Result, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	stack := make(domain.Stack, 0, len(b.levels))
	for _, lb := range b.levels {
		if len(lb.handles) == 1 {
			stack = append(stack, lb.handles[0])
			continue
		}
		agg, err := task.NewAggregated(b.reg, lb.handles, b.xSize)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", lb.index, err)
		}
		stack = append(stack, b.reg.AddTask(agg))
	}
	if err := stack.Validate(); err != nil {
		return nil, err
	}

	return &Result{
		Registry: b.reg,
		Stack:    stack,
		Global:   append([]domain.ConstraintHandle(nil), b.global...),
	}, nil
}

// Solver builds the stack and creates a solver for it.
func (b *Builder) Solver(opts ...sot.Option) (*sot.Solver, error) {
	res, err := b.Build()
	if err != nil {
		return nil, err
	}
	if len(res.Global) > 0 {
		opts = append([]sot.Option{sot.WithGlobalConstraints(res.Global...)}, opts...)
	}
	return sot.New(res.Registry, res.Stack, b.xSize, opts...)
}
