package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/internal/logging"
)

// Ticker is the part of the solver the runner needs.
type Ticker interface {
	Tick(ctx context.Context, x []float64) ([]float64, error)
}

// Result describes one tick of the runner.
type Result struct {
	Tick     int
	State    []float64
	Command  []float64
	Duration time.Duration
	Overrun  bool
	Err      error
}

// Stats counts what happened since the runner started.
type Stats struct {
	Ticks    int `json:"ticks"`
	Failures int `json:"failures"`
	Overruns int `json:"overruns"`
}

// Runner ticks a solver at a fixed period on its own simulated state.
type Runner struct {
	Solver   Ticker
	Period   time.Duration
	MaxTicks int
	Logger   *slog.Logger
	OnTick   func(Result)

	mu    sync.Mutex
	state []float64
	stats Stats
}

// New creates a runner starting from q0.
func New(solver Ticker, q0 []float64, opts ...Option) *Runner {
	r := &Runner{
		Solver: solver,
		Period: DefaultPeriod,
		state:  linalg.CloneVec(q0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// State returns a copy of the current simulated state.
func (r *Runner) State() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return linalg.CloneVec(r.state)
}

// Stats returns the counters so far.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run ticks until ctx is done or MaxTicks is reached. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.Solver == nil {
		return fmt.Errorf("runner has no solver")
	}
	if r.Period <= 0 {
		return fmt.Errorf("runner period must be positive, got %s", r.Period)
	}
	r.Logger.Info("control loop started", "period", r.Period)

	ticker := time.NewTicker(r.Period)
	defer ticker.Stop()

	for i := 0; r.MaxTicks <= 0 || i < r.MaxTicks; i++ {
		select {
		case <-ctx.Done():
			r.Logger.Info("control loop stopped", "ticks", i)
			return nil
		case <-ticker.C:
		}
		res := r.step(ctx, i)
		if r.OnTick != nil {
			r.OnTick(res)
		}
	}
	r.Logger.Info("control loop finished", "ticks", r.MaxTicks)
	return nil
}

func (r *Runner) step(ctx context.Context, i int) Result {
	q := r.State()
	start := time.Now()
	dq, err := r.Solver.Tick(ctx, q)
	elapsed := time.Since(start)

	res := Result{Tick: i, Command: dq, Duration: elapsed, Overrun: elapsed > r.Period, Err: err}

	r.mu.Lock()
	r.stats.Ticks++
	if res.Overrun {
		r.stats.Overruns++
	}
	if err != nil {
		r.stats.Failures++
	} else {
		r.state = linalg.Add(r.state, dq)
	}
	res.State = linalg.CloneVec(r.state)
	r.mu.Unlock()

	if err != nil {
		r.Logger.Warn("tick failed, keeping state", "tick", i, "error", err)
	} else if res.Overrun {
		r.Logger.Warn("tick overran its period", "tick", i, "duration", elapsed, "period", r.Period)
	}
	return res
}
