package qp

import (
	"fmt"

	"github.com/aretw0/sot/pkg/domain"
)

// Tier names one retry strategy of Solve.
type Tier int

const (
	// TierNone means no solve has succeeded yet.
	TierNone Tier = iota
	// TierHotstart reuses the previous working set.
	TierHotstart
	// TierWarmstart reseeds from the previous primal and dual solution.
	TierWarmstart
	// TierCold solves from an empty working set.
	TierCold
)

func (t Tier) String() string {
	switch t {
	case TierHotstart:
		return "hotstart"
	case TierWarmstart:
		return "warmstart"
	case TierCold:
		return "cold"
	default:
		return "none"
	}
}

// Attempt records one tier tried during init or solve.
type Attempt struct {
	Tier       Tier
	Err        error
	Iterations int
}

type strategy struct {
	tier Tier
	run  func(p *Problem, in *solverInput) (*activeSetResult, error)
}

func defaultStrategies() []strategy {
	return []strategy{
		{tier: TierHotstart, run: (*Problem).hotstart},
		{tier: TierWarmstart, run: (*Problem).warmstart},
		{tier: TierCold, run: (*Problem).cold},
	}
}

func (p *Problem) strategy(t Tier) strategy {
	for _, s := range p.strategies {
		if s.tier == t {
			return s
		}
	}
	return strategy{tier: TierCold, run: (*Problem).cold}
}

// Solve solves the stored problem, trying hotstart, then warmstart, then cold.
// A Stale problem skips straight to the cold tier, since its stored working set
// and solution come from a failed solve. The first success is committed. When
// every tier fails the last error is returned, the previous solution is kept
// and the problem becomes Stale.
func (p *Problem) Solve() error {
	if p.state == StateUninitialized {
		return domain.ErrNotInitialized
	}
	p.CheckInfinity()
	p.attempts = nil

	if p.fac == nil {
		fac, err := p.factorize(p.d.h)
		if err != nil {
			p.state = StateStale
			return err
		}
		p.fac = fac
	}
	rows, err := buildRows(p.shape.Variables, p.d.l, p.d.u, p.d.a, p.d.lA, p.d.uA, p.opts.Infty)
	if err != nil {
		p.state = StateStale
		return err
	}

	tiers := p.strategies
	if p.state == StateStale {
		tiers = []strategy{p.strategy(TierCold)}
	}

	var lastErr error
	for _, s := range tiers {
		in := &solverInput{h: p.fac.h, chol: p.fac.chol, g: p.d.g, rows: rows, nWSR: p.opts.NWSR}
		res, err := s.run(p, in)
		p.attempts = append(p.attempts, Attempt{Tier: s.tier, Err: err, Iterations: iterations(res)})
		if err == nil {
			p.commit(res, rows, s.tier)
			return nil
		}
		p.logger.Debug("qp tier failed", "problem", p.name, "tier", s.tier, "error", err)
		lastErr = err
	}

	p.logger.Warn("qp solve failed on every tier", "problem", p.name, "error", lastErr)
	p.state = StateStale
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no solve strategy configured", domain.ErrSolveFailure)
	}
	return lastErr
}

// hotstart checks the previous working set directly and otherwise uses it as
// the preferred order of the active-set iterations.
func (p *Problem) hotstart(in *solverInput) (*activeSetResult, error) {
	if p.state != StateReady {
		return nil, fmt.Errorf("%w: no warm start data", domain.ErrSolveFailure)
	}
	prefer := make(map[int]bool)
	var guess []int
	for idx, r := range in.rows {
		if r.equality || p.wasActive(r) {
			prefer[idx] = true
			guess = append(guess, idx)
		}
	}
	if res, ok := solveWorkingSet(in, guess); ok {
		return res, nil
	}
	in.prefer = prefer
	return solveActiveSet(in)
}

// warmstart reseeds the working set from the previous primal and dual solution.
func (p *Problem) warmstart(in *solverInput) (*activeSetResult, error) {
	if len(p.x) != p.shape.Variables {
		return nil, fmt.Errorf("%w: no previous solution", domain.ErrSolveFailure)
	}
	prefer := make(map[int]bool)
	for idx, r := range in.rows {
		slot := r.index
		if !r.bound {
			slot += p.shape.Variables
		}
		var dual float64
		if slot < len(p.y) {
			dual = p.y[slot]
		}
		switch {
		case r.equality && dual != 0:
			prefer[idx] = true
		case r.upper && dual < 0:
			prefer[idx] = true
		case !r.upper && !r.equality && dual > 0:
			prefer[idx] = true
		case r.slack(p.x) < -r.tol():
			prefer[idx] = true
		}
	}
	in.prefer = prefer
	return solveActiveSet(in)
}

func (p *Problem) cold(in *solverInput) (*activeSetResult, error) {
	in.prefer = nil
	return solveActiveSet(in)
}

func (p *Problem) wasActive(r row) bool {
	status := p.activeBounds
	if !r.bound {
		status = p.activeConstrs
	}
	if r.index >= len(status) {
		return false
	}
	switch status[r.index] {
	case ActiveLower:
		return !r.upper
	case ActiveUpper:
		return r.upper
	case ActiveEquality:
		return true
	}
	return false
}
