package qp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// State is the lifecycle state of a Problem.
type State int

const (
	// StateUninitialized means no init has succeeded yet.
	StateUninitialized State = iota
	// StateReady means the stored solution and active sets may seed the next solve.
	StateReady
	// StateStale means the stored warm start data must not be trusted.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	default:
		return "uninitialized"
	}
}

// Activity is the status of a bound or a general constraint in the working set.
type Activity int

const (
	// Inactive rows do not bind the solution.
	Inactive Activity = iota
	// ActiveLower rows sit on their lower bound.
	ActiveLower
	// ActiveUpper rows sit on their upper bound.
	ActiveUpper
	// ActiveEquality rows have equal lower and upper bounds.
	ActiveEquality
)

func (a Activity) String() string {
	switch a {
	case ActiveLower:
		return "lower"
	case ActiveUpper:
		return "upper"
	case ActiveEquality:
		return "equality"
	default:
		return "inactive"
	}
}

// Shape is the size of a problem.
type Shape struct {
	Variables   int
	Constraints int
}

// data holds one consistent set of problem matrices.
type data struct {
	h      *mat.Dense
	g      []float64
	a      *mat.Dense
	lA, uA []float64
	l, u   []float64
}

func (d data) clone() data {
	return data{
		h:  linalg.Clone(d.h),
		g:  linalg.CloneVec(d.g),
		a:  linalg.Clone(d.a),
		lA: linalg.CloneVec(d.lA),
		uA: linalg.CloneVec(d.uA),
		l:  linalg.CloneVec(d.l),
		u:  linalg.CloneVec(d.u),
	}
}

// factor is the effective Hessian and its Cholesky factor.
type factor struct {
	h    *mat.Dense
	chol *mat.Cholesky
}

// Problem is one QP with warm start state. It is not safe for concurrent use.
type Problem struct {
	opts   Options
	name   string
	logger *slog.Logger

	state State
	shape Shape
	d     data
	fac   *factor

	x              []float64
	y              []float64
	activeBounds   []Activity
	activeConstrs  []Activity
	strategies     []strategy
	attempts       []Attempt
	lastTier       Tier
	lastIterations int
}

// New creates an uninitialized problem.
func New(opts ...Option) *Problem {
	p := &Problem{
		opts:       DefaultOptions(),
		logger:     defaultLogger(),
		strategies: defaultStrategies(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func validate(d data) (Shape, error) {
	n := linalg.Rows(d.h)
	if n == 0 || linalg.Cols(d.h) != n {
		return Shape{}, fmt.Errorf("%w: H must be a non-empty square matrix, got %dx%d", domain.ErrShapeMismatch, n, linalg.Cols(d.h))
	}
	if len(d.g) != n {
		return Shape{}, fmt.Errorf("%w: g has %d elements, want %d", domain.ErrShapeMismatch, len(d.g), n)
	}
	r := linalg.Rows(d.a)
	if r > 0 && linalg.Cols(d.a) != n {
		return Shape{}, fmt.Errorf("%w: A has %d columns, want %d", domain.ErrShapeMismatch, linalg.Cols(d.a), n)
	}
	if len(d.lA) != r || len(d.uA) != r {
		return Shape{}, fmt.Errorf("%w: lA/uA have %d/%d elements, want %d", domain.ErrShapeMismatch, len(d.lA), len(d.uA), r)
	}
	if len(d.l) != n || len(d.u) != n {
		return Shape{}, fmt.Errorf("%w: l/u have %d/%d elements, want %d", domain.ErrShapeMismatch, len(d.l), len(d.u), n)
	}
	return Shape{Variables: n, Constraints: r}, nil
}

// InitProblem validates and stores a new problem, then solves it from scratch.
// Empty l or u are read as unbounded. On failure the previous data, solution
// and state are left untouched.
func (p *Problem) InitProblem(h *mat.Dense, g []float64, a *mat.Dense, lA, uA, l, u []float64) error {
	n := linalg.Rows(h)
	if len(l) == 0 {
		l = linalg.Filled(n, -p.opts.Infty)
	}
	if len(u) == 0 {
		u = linalg.Filled(n, p.opts.Infty)
	}
	if linalg.Rows(a) == 0 {
		a = nil
	}
	d := data{h: h, g: g, a: a, lA: lA, uA: uA, l: l, u: u}.clone()
	shape, err := validate(d)
	if err != nil {
		return err
	}
	clampInfinity(d.l, d.u, p.opts.Infty)
	clampInfinity(d.lA, d.uA, p.opts.Infty)

	fac, err := p.factorize(d.h)
	if err != nil {
		return err
	}
	rows, err := buildRows(shape.Variables, d.l, d.u, d.a, d.lA, d.uA, p.opts.Infty)
	if err != nil {
		p.dumpInfeasibility(d, err)
		return err
	}

	cold := p.strategy(TierCold)
	in := &solverInput{h: fac.h, chol: fac.chol, g: d.g, rows: rows, nWSR: p.opts.NWSR}
	res, err := cold.run(p, in)
	p.attempts = []Attempt{{Tier: TierCold, Err: err, Iterations: iterations(res)}}
	if err != nil {
		p.dumpInfeasibility(d, err)
		return err
	}

	p.d = d
	p.fac = fac
	p.shape = shape
	p.commit(res, rows, TierCold)
	return nil
}

// UpdateTask replaces H and g. When the variable count changes the problem is
// rebuilt at the new size with unbounded variables and initialized again.
func (p *Problem) UpdateTask(h *mat.Dense, g []float64) error {
	if p.state == StateUninitialized {
		return domain.ErrNotInitialized
	}
	n := linalg.Rows(h)
	if n == 0 || linalg.Cols(h) != n {
		return fmt.Errorf("%w: H must be a non-empty square matrix, got %dx%d", domain.ErrShapeMismatch, n, linalg.Cols(h))
	}
	if len(g) != n {
		return fmt.Errorf("%w: g has %d elements, want %d", domain.ErrShapeMismatch, len(g), n)
	}
	if n == p.shape.Variables {
		p.d.h = linalg.Clone(h)
		p.d.g = linalg.CloneVec(g)
		p.fac = nil
		return nil
	}
	if linalg.Rows(p.d.a) > 0 && linalg.Cols(p.d.a) != n {
		return fmt.Errorf("%w: constraints have %d columns, new task has %d variables", domain.ErrShapeMismatch, linalg.Cols(p.d.a), n)
	}
	p.logger.Debug("qp variable count changed, rebuilding", "problem", p.name, "from", p.shape.Variables, "to", n)
	return p.InitProblem(h, g, p.d.a, p.d.lA, p.d.uA, nil, nil)
}

// UpdateConstraints replaces A, lA and uA. When the row count changes the
// problem is rebuilt and initialized again.
func (p *Problem) UpdateConstraints(a *mat.Dense, lA, uA []float64) error {
	if p.state == StateUninitialized {
		return domain.ErrNotInitialized
	}
	r := linalg.Rows(a)
	if r > 0 && linalg.Cols(a) != p.shape.Variables {
		return fmt.Errorf("%w: A has %d columns, want %d", domain.ErrShapeMismatch, linalg.Cols(a), p.shape.Variables)
	}
	if len(lA) != r || len(uA) != r {
		return fmt.Errorf("%w: lA/uA have %d/%d elements, want %d", domain.ErrShapeMismatch, len(lA), len(uA), r)
	}
	if r == p.shape.Constraints {
		p.d.a = linalg.Clone(a)
		p.d.lA = linalg.CloneVec(lA)
		p.d.uA = linalg.CloneVec(uA)
		return nil
	}
	p.logger.Debug("qp constraint count changed, rebuilding", "problem", p.name, "from", p.shape.Constraints, "to", r)
	return p.InitProblem(p.d.h, p.d.g, a, lA, uA, p.d.l, p.d.u)
}

// UpdateBounds replaces l and u. Their sizes must match the variable count.
func (p *Problem) UpdateBounds(l, u []float64) error {
	if p.state == StateUninitialized {
		return domain.ErrNotInitialized
	}
	if len(l) != p.shape.Variables || len(u) != p.shape.Variables {
		return fmt.Errorf("%w: l/u have %d/%d elements, want %d", domain.ErrShapeMismatch, len(l), len(u), p.shape.Variables)
	}
	p.d.l = linalg.CloneVec(l)
	p.d.u = linalg.CloneVec(u)
	return nil
}

// UpdateProblem updates bounds, then constraints, then the task, stopping at the first failure.
func (p *Problem) UpdateProblem(h *mat.Dense, g []float64, a *mat.Dense, lA, uA, l, u []float64) error {
	if err := p.UpdateBounds(l, u); err != nil {
		return fmt.Errorf("update bounds: %w", err)
	}
	if err := p.UpdateConstraints(a, lA, uA); err != nil {
		return fmt.Errorf("update constraints: %w", err)
	}
	if err := p.UpdateTask(h, g); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// SetHessianType changes the Hessian hint. The cached factorisation is dropped
// and the warm start state is marked stale.
func (p *Problem) SetHessianType(t HessianType) {
	p.opts.HessianType = t
	p.fac = nil
	if p.state == StateReady {
		p.state = StateStale
	}
}

// HessianType returns the current Hessian hint.
func (p *Problem) HessianType() HessianType { return p.opts.HessianType }

// NWSR returns the working set change budget.
func (p *Problem) NWSR() int { return p.opts.NWSR }

// SetNWSR sets the working set change budget.
func (p *Problem) SetNWSR(n int) { p.opts.NWSR = n }

// Options returns a copy of the tunables.
func (p *Problem) Options() Options { return p.opts }

// State returns the lifecycle state.
func (p *Problem) State() State { return p.state }

// Shape returns the committed problem size.
func (p *Problem) Shape() Shape { return p.shape }

// H returns a copy of the Hessian.
func (p *Problem) H() *mat.Dense { return linalg.Clone(p.d.h) }

// G returns a copy of the gradient.
func (p *Problem) G() []float64 { return linalg.CloneVec(p.d.g) }

// A returns a copy of the general constraint matrix, nil when there are no rows.
func (p *Problem) A() *mat.Dense { return linalg.Clone(p.d.a) }

// LA returns the clamped lower bounds of the general constraints.
func (p *Problem) LA() []float64 { return linalg.CloneVec(p.d.lA) }

// UA returns the clamped upper bounds of the general constraints.
func (p *Problem) UA() []float64 { return linalg.CloneVec(p.d.uA) }

// L returns the clamped lower variable bounds.
func (p *Problem) L() []float64 { return linalg.CloneVec(p.d.l) }

// U returns the clamped upper variable bounds.
func (p *Problem) U() []float64 { return linalg.CloneVec(p.d.u) }

// Solution returns the last committed primal solution.
func (p *Problem) Solution() []float64 { return linalg.CloneVec(p.x) }

// DualSolution returns the multipliers, bounds first then general rows.
// Lower-active entries are positive and upper-active entries negative.
func (p *Problem) DualSolution() []float64 { return linalg.CloneVec(p.y) }

// ActiveBounds returns the status of every variable bound at the solution.
func (p *Problem) ActiveBounds() []Activity {
	return append([]Activity(nil), p.activeBounds...)
}

// ActiveConstraints returns the status of every general row at the solution.
func (p *Problem) ActiveConstraints() []Activity {
	return append([]Activity(nil), p.activeConstrs...)
}

// Attempts lists the tiers tried by the last init or solve.
func (p *Problem) Attempts() []Attempt {
	return append([]Attempt(nil), p.attempts...)
}

// LastTier returns the tier that produced the current solution.
func (p *Problem) LastTier() Tier { return p.lastTier }

// Iterations returns the working set changes of the last successful solve.
func (p *Problem) Iterations() int { return p.lastIterations }

func (p *Problem) factorize(h *mat.Dense) (*factor, error) {
	n := linalg.Rows(h)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			if p.opts.HessianType == HessianIdentity {
				if i == j {
					v = 1
				}
			} else {
				v = 0.5 * (h.At(i, j) + h.At(j, i))
			}
			sym.SetSym(i, j, v)
		}
	}
	if p.opts.HessianType.regularised() {
		eps := p.opts.Regularisation()
		for i := 0; i < n; i++ {
			sym.SetSym(i, i, sym.At(i, i)+eps)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: hessian is not positive definite (type %s)", domain.ErrSolveFailure, p.opts.HessianType)
	}
	return &factor{h: mat.DenseCopyOf(sym), chol: &chol}, nil
}

// commit stores an active-set result as the current solution.
func (p *Problem) commit(res *activeSetResult, rows []row, tier Tier) {
	n, r := p.shape.Variables, p.shape.Constraints
	p.x = linalg.CloneVec(res.x)
	p.y = make([]float64, n+r)
	p.activeBounds = make([]Activity, n)
	p.activeConstrs = make([]Activity, r)
	for j, idx := range res.active {
		rw := rows[idx]
		slot := rw.index
		status := &p.activeBounds
		if !rw.bound {
			slot += n
			status = &p.activeConstrs
		}
		switch {
		case rw.equality:
			p.y[slot] = res.mult[j]
			(*status)[rw.index] = ActiveEquality
		case rw.upper:
			p.y[slot] = -res.mult[j]
			(*status)[rw.index] = ActiveUpper
		default:
			p.y[slot] = res.mult[j]
			(*status)[rw.index] = ActiveLower
		}
	}
	p.state = StateReady
	p.lastTier = tier
	p.lastIterations = res.iterations
}

func (p *Problem) dumpInfeasibility(d data, err error) {
	if !p.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	p.logger.Debug("qp init failed", "problem", p.name, "error", err)
	for i := 0; i < linalg.Rows(d.a); i++ {
		p.logger.Debug("qp constraint", "problem", p.name, "row", i, "lA", d.lA[i], "A", linalg.Row(d.a, i), "uA", d.uA[i])
	}
	for i := range d.l {
		p.logger.Debug("qp bound", "problem", p.name, "var", i, "l", d.l[i], "u", d.u[i])
	}
}

func iterations(res *activeSetResult) int {
	if res == nil {
		return 0
	}
	return res.iterations
}
