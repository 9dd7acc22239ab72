// Package runtime implements the hierarchical cascade: one QP per priority
// level, each level constrained to preserve the optimum of the levels above.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/internal/logging"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/aretw0/sot/pkg/qp"
)

// Engine solves a Stack. It keeps one qp.Problem per level so every level
// warm starts from its own previous tick. It is not safe for concurrent use.
type Engine struct {
	arena   ports.Arena
	stack   domain.Stack
	n       int
	globals []domain.ConstraintHandle
	policy  PriorityPolicy
	qpOpts  []qp.Option
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	levels  []*level
	infty   float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithGlobalConstraints adds constraints enforced at every level.
func WithGlobalConstraints(hs ...domain.ConstraintHandle) EngineOption {
	return func(e *Engine) {
		e.globals = append(e.globals, hs...)
	}
}

// WithPolicy sets how higher levels are preserved. Defaults to PinEquality.
func WithPolicy(p PriorityPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithQPOptions sets the options of every level problem.
func WithQPOptions(opts ...qp.Option) EngineOption {
	return func(e *Engine) {
		e.qpOpts = append(e.qpOpts, opts...)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine validates the stack against the arena and creates one problem per level.
func NewEngine(arena ports.Arena, stack domain.Stack, n int, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		arena:  arena,
		stack:  append(domain.Stack(nil), stack...),
		n:      n,
		policy: PinEquality{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: variable count must be positive, got %d", domain.ErrValidation, n)
	}
	if err := e.stack.Validate(); err != nil {
		return nil, err
	}
	for i, h := range e.stack {
		t, err := arena.Task(h)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		if t.XSize() != n {
			return nil, fmt.Errorf("%w: level %d task %s has %d variables, want %d", domain.ErrValidation, i, t.ID(), t.XSize(), n)
		}
		for _, ch := range t.Constraints() {
			if err := e.checkConstraint(ch); err != nil {
				return nil, fmt.Errorf("level %d: %w", i, err)
			}
		}
	}
	for _, ch := range e.globals {
		if err := e.checkConstraint(ch); err != nil {
			return nil, err
		}
	}

	probe := qp.New(e.qpOpts...)
	e.infty = probe.Options().Infty
	for i, h := range e.stack {
		lopts := append([]qp.Option{qp.WithLogger(e.logger)}, e.qpOpts...)
		lopts = append(lopts, qp.WithName(fmt.Sprintf("level%d", i)))
		e.levels = append(e.levels, &level{index: i, handle: h, problem: qp.New(lopts...)})
	}
	return e, nil
}

func (e *Engine) checkConstraint(h domain.ConstraintHandle) error {
	c, err := e.arena.Constraint(h)
	if err != nil {
		return err
	}
	if c.XSize() != e.n {
		return fmt.Errorf("%w: constraint %s has %d variables, want %d", domain.ErrValidation, c.ID(), c.XSize(), e.n)
	}
	return nil
}

// Update updates every task of the stack, and through them their constraints,
// then the global constraints, all at the same state x.
func (e *Engine) Update(x []float64) error {
	if len(x) != e.n {
		return fmt.Errorf("%w: state has %d elements, want %d", domain.ErrShapeMismatch, len(x), e.n)
	}
	for i, h := range e.stack {
		t, err := e.arena.Task(h)
		if err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
		if err := t.Update(x); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}
	for _, h := range e.globals {
		c, err := e.arena.Constraint(h)
		if err != nil {
			return err
		}
		if err := c.Update(x); err != nil {
			return fmt.Errorf("global constraint %s: %w", c.ID(), err)
		}
	}
	return nil
}

// Solve runs the cascade with the current task and constraint values and
// returns the solution of the lowest priority level. The first level that
// fails aborts the tick.
func (e *Engine) Solve(ctx context.Context, tick uint64) ([]float64, error) {
	var accumulated [][]domain.ConstraintHandle
	var x []float64

	for k, lv := range e.levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		t, err := e.arena.Task(lv.handle)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", k, err)
		}
		accumulated = append(accumulated, t.Constraints())

		data, count, err := e.assemble(k, t, accumulated)
		if err == nil {
			err = e.solveLevel(lv, data)
		}
		e.emitAttempts(ctx, tick, lv)
		if err != nil {
			e.logger.Warn("level solve failed", "level", k, "task", t.ID(), "error", err)
			e.emitLevel(ctx, tick, lv, t.ID(), count, time.Since(start), err)
			return nil, fmt.Errorf("level %d (%s): %w", k, t.ID(), err)
		}

		x = lv.problem.Solution()
		lv.taskID = t.ID()
		lv.a = linalg.Clone(t.A())
		lv.solution = linalg.CloneVec(x)
		lv.constraints = count
		lv.residual = linalg.Norm(linalg.Sub(linalg.MulVec(t.A(), x), linalg.Scale(t.Lambda(), t.B())))
		e.emitLevel(ctx, tick, lv, t.ID(), count, time.Since(start), nil)
	}
	return x, nil
}

// assemble builds the QP of level k and returns it with its general row count.
func (e *Engine) assemble(k int, t ports.Task, accumulated [][]domain.ConstraintHandle) (*qpData, int, error) {
	h, g, err := objective(t, e.n)
	if err != nil {
		return nil, 0, err
	}

	fs := newFeasibleSet(e.n, e.infty)
	handles := domain.DedupConstraints(append(accumulated, e.globals)...)
	for _, ch := range handles {
		c, err := e.arena.Constraint(ch)
		if err != nil {
			return nil, 0, err
		}
		if err := fs.add(c); err != nil {
			return nil, 0, err
		}
	}
	for i := 0; i < k; i++ {
		above := e.levels[i]
		if linalg.Rows(above.a) == 0 {
			continue
		}
		lo, hi := e.policy.Rows(above.a, linalg.MulVec(above.a, above.solution))
		fs.push(above.a, lo, hi)
	}
	a, lA, uA, l, u, err := fs.build()
	if err != nil {
		return nil, 0, err
	}
	return &qpData{h: h, g: g, a: a, lA: lA, uA: uA, l: l, u: u}, linalg.Rows(a), nil
}

func (e *Engine) solveLevel(lv *level, d *qpData) error {
	p := lv.problem
	if p.State() == qp.StateUninitialized {
		return p.InitProblem(d.h, d.g, d.a, d.lA, d.uA, d.l, d.u)
	}
	if err := p.UpdateProblem(d.h, d.g, d.a, d.lA, d.uA, d.l, d.u); err != nil {
		return err
	}
	return p.Solve()
}

func (e *Engine) emitAttempts(ctx context.Context, tick uint64, lv *level) {
	if e.hooks.OnSolveAttempt == nil {
		return
	}
	for _, a := range lv.problem.Attempts() {
		e.hooks.OnSolveAttempt(ctx, &domain.SolveAttemptEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventSolveAttempt, Tick: tick},
			Level:      lv.index,
			Tier:       a.Tier.String(),
			Iterations: a.Iterations,
			Err:        a.Err,
		})
	}
}

func (e *Engine) emitLevel(ctx context.Context, tick uint64, lv *level, taskID string, constraints int, d time.Duration, err error) {
	if e.hooks.OnLevelSolved == nil {
		return
	}
	e.hooks.OnLevelSolved(ctx, &domain.LevelEvent{
		EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventLevelSolved, Tick: tick},
		Level:       lv.index,
		TaskID:      taskID,
		Constraints: constraints,
		Duration:    d,
		Err:         err,
	})
}

// Levels reports the last solve of every level.
func (e *Engine) Levels() []domain.LevelReport {
	out := make([]domain.LevelReport, 0, len(e.levels))
	for _, lv := range e.levels {
		out = append(out, lv.report(lv.problem))
	}
	return out
}

// Describe reports the task rows and constraint count of every level.
func (e *Engine) Describe() ([]domain.LevelSummary, error) {
	out := make([]domain.LevelSummary, 0, len(e.levels))
	for k, lv := range e.levels {
		t, err := e.arena.Task(lv.handle)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", k, err)
		}
		out = append(out, domain.LevelSummary{
			Level:       k,
			TaskID:      t.ID(),
			Rows:        linalg.Rows(t.A()),
			Constraints: len(t.Constraints()),
		})
	}
	return out, nil
}

// Problems returns the QP summary of every level.
func (e *Engine) Problems() []qp.Information {
	out := make([]qp.Information, 0, len(e.levels))
	for _, lv := range e.levels {
		out = append(out, lv.problem.ProblemInformation())
	}
	return out
}

// Stack returns the solved stack.
func (e *Engine) Stack() domain.Stack { return append(domain.Stack(nil), e.stack...) }

// XSize returns the variable count.
func (e *Engine) XSize() int { return e.n }

// Log exports every level problem, every task of the stack and every
// constraint they reference.
func (e *Engine) Log(sink ports.DiagnosticSink) {
	var lists [][]domain.ConstraintHandle
	for i, lv := range e.levels {
		lv.problem.Log(sink, i)
		if t, err := e.arena.Task(lv.handle); err == nil {
			t.Log(sink)
			lists = append(lists, t.Constraints())
		}
	}
	for _, ch := range domain.DedupConstraints(append(lists, e.globals)...) {
		if c, err := e.arena.Constraint(ch); err == nil {
			c.Log(sink)
		}
	}
}
