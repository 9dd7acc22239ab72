package sot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sot/internal/logging"
	"github.com/aretw0/sot/internal/runtime"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/aretw0/sot/pkg/qp"
)

// Solver is the high-level entry point of the library.
// It wraps the internal cascade engine and serialises ticks.
type Solver struct {
	mu          sync.Mutex
	runtime     *runtime.Engine
	sink        ports.DiagnosticSink
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
	tick        uint64
	last        []float64
	Name        string
}

// PriorityPolicy decides how the optimum of a level constrains the levels below it.
type PriorityPolicy = runtime.PriorityPolicy

// PinEquality pins A_k x to its optimum with equality rows. It is the default.
type PinEquality = runtime.PinEquality

// RelaxedBand keeps A_k x within Eps of its optimum.
type RelaxedBand = runtime.RelaxedBand

// ParsePriorityPolicy maps a configuration name ("pin" or "band") to a policy.
func ParsePriorityPolicy(name string, eps float64) (PriorityPolicy, error) {
	return runtime.ParsePolicy(name, eps)
}

// Option defines a functional option for configuring the Solver.
type Option func(*Solver)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Solver) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the solver.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		s.logger = logger
	}
}

// WithDiagnosticSink exports the matrices of every tick to sink.
func WithDiagnosticSink(sink ports.DiagnosticSink) Option {
	return func(s *Solver) {
		s.sink = sink
	}
}

// WithGlobalConstraints enforces constraints at every level, such as the
// velocity limits of the robot.
func WithGlobalConstraints(hs ...domain.ConstraintHandle) Option {
	return func(s *Solver) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithGlobalConstraints(hs...))
	}
}

// WithPriorityPolicy selects how higher levels are preserved.
func WithPriorityPolicy(p PriorityPolicy) Option {
	return func(s *Solver) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithPolicy(p))
	}
}

// WithQPOptions configures the backend of every level.
func WithQPOptions(opts ...qp.Option) Option {
	return func(s *Solver) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithQPOptions(opts...))
	}
}

// WithName labels the solver in logs.
func WithName(name string) Option {
	return func(s *Solver) {
		s.Name = name
	}
}

// New creates a solver for the stack. Every task and constraint must be
// registered in arena and have xSize variables.
func New(arena ports.Arena, stack domain.Stack, xSize int, opts ...Option) (*Solver, error) {
	s := &Solver{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Name != "" {
		s.logger = s.logger.With("solver", s.Name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithLogger(s.logger),
	}
	runtimeOpts = append(runtimeOpts, s.runtimeOpts...)

	engine, err := runtime.NewEngine(arena, stack, xSize, runtimeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build solver: %w", err)
	}
	s.runtime = engine
	return s, nil
}

// Update updates every task and constraint at the state x without solving.
func (s *Solver) Update(x []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Update(x)
}

// Solve runs the cascade with the current task and constraint values.
func (s *Solver) Solve(ctx context.Context) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solve(ctx)
}

// Tick updates everything at the state x and solves. It returns the command
// of the lowest priority level.
func (s *Solver) Tick(ctx context.Context, x []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.runtime.Update(x); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	return s.solve(ctx)
}

func (s *Solver) solve(ctx context.Context) ([]float64, error) {
	s.tick++
	tick := s.tick
	start := time.Now()
	levels := len(s.runtime.Stack())

	if s.hooks.OnTickStart != nil {
		s.hooks.OnTickStart(ctx, &domain.TickEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventTickStart, Tick: tick},
			Levels:    levels,
		})
	}

	x, err := s.runtime.Solve(ctx, tick)

	if s.hooks.OnTickEnd != nil {
		s.hooks.OnTickEnd(ctx, &domain.TickEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTickEnd, Tick: tick},
			Levels:    levels,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	if err != nil {
		s.logger.Error("tick failed", "tick", tick, "error", err)
		return nil, err
	}
	s.last = x

	if s.sink != nil {
		s.runtime.Log(s.sink)
		if ferr := s.sink.Flush(ctx, tick); ferr != nil {
			s.logger.Warn("diagnostic flush failed", "tick", tick, "error", ferr)
		}
	}
	s.logger.Debug("tick solved", "tick", tick, "duration", time.Since(start))
	return x, nil
}

// Levels reports the last solve of every level.
func (s *Solver) Levels() []domain.LevelReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Levels()
}

// Describe reports the shape of every level. It is serialised with ticks so
// readers never observe a task halfway through its update.
func (s *Solver) Describe() ([]domain.LevelSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Describe()
}

// Problems returns the QP summary of every level.
func (s *Solver) Problems() []qp.Information {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Problems()
}

// Stack returns the solved stack.
func (s *Solver) Stack() domain.Stack {
	return s.runtime.Stack()
}

// XSize returns the size of the command vector.
func (s *Solver) XSize() int {
	return s.runtime.XSize()
}

// TickCount returns the number of ticks solved or attempted.
func (s *Solver) TickCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// LastSolution returns the command of the last successful tick.
func (s *Solver) LastSolution() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.last...)
}
