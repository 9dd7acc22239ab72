package qp

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

const (
	feasibilityTol = 1e-9
	consistencyTol = 1e-6
	dependenceTol  = 1e-9
	dualTol        = 1e-12
)

var errSingularKKT = errors.New("singular KKT system")

// row is one scalar constraint nᵀx >= rhs, or nᵀx = rhs for equalities.
// Upper limits are stored negated so every row reads as a lower limit.
type row struct {
	normal   []float64
	rhs      float64
	equality bool
	bound    bool
	index    int
	upper    bool
}

func (r row) slack(x []float64) float64 {
	return linalg.Dot(r.normal, x) - r.rhs
}

func (r row) tol() float64 {
	return feasibilityTol * (1 + math.Abs(r.rhs))
}

// buildRows expands bounds and general constraints into one sided rows.
func buildRows(n int, l, u []float64, a *mat.Dense, lA, uA []float64, infty float64) ([]row, error) {
	var rows []row
	add := func(normal []float64, lo, hi float64, bound bool, index int) error {
		hasLo, hasHi := lo > -infty, hi < infty
		if hasLo && hasHi {
			if lo > hi+feasibilityTol*(1+math.Abs(hi)) {
				kind := "constraint"
				if bound {
					kind = "bound"
				}
				return fmt.Errorf("%w: %s %d has lower %g above upper %g", domain.ErrInfeasible, kind, index, lo, hi)
			}
			if hi-lo <= feasibilityTol*(1+math.Abs(lo)) {
				rows = append(rows, row{normal: normal, rhs: lo, equality: true, bound: bound, index: index})
				return nil
			}
		}
		if hasLo {
			rows = append(rows, row{normal: normal, rhs: lo, bound: bound, index: index})
		}
		if hasHi {
			rows = append(rows, row{normal: linalg.Scale(-1, normal), rhs: -hi, bound: bound, index: index, upper: true})
		}
		return nil
	}
	for i := 0; i < n; i++ {
		e := make([]float64, n)
		e[i] = 1
		if err := add(e, l[i], u[i], true, i); err != nil {
			return nil, err
		}
	}
	for j := 0; j < linalg.Rows(a); j++ {
		if err := add(linalg.Row(a, j), lA[j], uA[j], false, j); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// solverInput is the prepared data one active-set run works on.
type solverInput struct {
	h      *mat.Dense
	chol   *mat.Cholesky
	g      []float64
	rows   []row
	nWSR   int
	prefer map[int]bool
}

type activeSetResult struct {
	x          []float64
	active     []int
	mult       []float64
	iterations int
}

// activeSet runs the Goldfarb-Idnani dual method. It starts from the
// unconstrained minimum and adds the most violated constraint, preferring rows
// in in.prefer, until the primal iterate is feasible.
type activeSet struct {
	in     *solverInput
	n      int
	x      []float64
	active []int
	u      []float64
	sign   map[int]float64
	it     int
}

func solveActiveSet(in *solverInput) (*activeSetResult, error) {
	n := len(in.g)
	s := &activeSet{in: in, n: n, sign: make(map[int]float64)}

	x, err := s.solveH(linalg.Scale(-1, in.g))
	if err != nil {
		return nil, err
	}
	s.x = x

	for p, r := range in.rows {
		if !r.equality {
			continue
		}
		s.sign[p] = 1
		if r.slack(s.x) > 0 {
			s.sign[p] = -1
		}
		if err := s.add(p); err != nil {
			return nil, err
		}
	}

	for {
		p := s.mostViolated()
		if p < 0 {
			break
		}
		s.sign[p] = 1
		if err := s.add(p); err != nil {
			return nil, err
		}
	}

	res := &activeSetResult{x: s.x, iterations: s.it}
	for j, p := range s.active {
		res.active = append(res.active, p)
		res.mult = append(res.mult, s.sign[p]*s.u[j])
	}
	return res, nil
}

func (s *activeSet) normal(p int) []float64 {
	if s.sign[p] < 0 {
		return linalg.Scale(-1, s.in.rows[p].normal)
	}
	return s.in.rows[p].normal
}

func (s *activeSet) slack(p int) float64 {
	r := s.in.rows[p]
	return s.sign[p] * (linalg.Dot(r.normal, s.x) - r.rhs)
}

func (s *activeSet) isActive(p int) bool {
	for _, q := range s.active {
		if q == p {
			return true
		}
	}
	return false
}

func (s *activeSet) mostViolated() int {
	best, bestPref := -1, -1
	worst, worstPref := 0.0, 0.0
	for p, r := range s.in.rows {
		if r.equality || s.isActive(p) {
			continue
		}
		v := r.slack(s.x)
		if v >= -r.tol() {
			continue
		}
		if v < worst {
			worst, best = v, p
		}
		if s.in.prefer[p] && v < worstPref {
			worstPref, bestPref = v, p
		}
	}
	if bestPref >= 0 {
		return bestPref
	}
	return best
}

// add brings row p into the active set, dropping blocking rows on the way.
func (s *activeSet) add(p int) error {
	r := s.in.rows[p]
	np := s.normal(p)
	up := 0.0
	for {
		if s.it >= s.in.nWSR {
			return fmt.Errorf("%w: working set limit of %d changes reached", domain.ErrSolveFailure, s.in.nWSR)
		}
		sp := s.slack(p)

		z, rr, dependent, err := s.step(np)
		if err != nil {
			return err
		}
		if dependent && r.equality && math.Abs(sp) <= consistencyTol*(1+math.Abs(r.rhs)) {
			// Redundant with the working set and already satisfied.
			return nil
		}

		t1, k := math.Inf(1), -1
		for j, q := range s.active {
			if s.in.rows[q].equality || rr[j] <= dualTol {
				continue
			}
			if t := s.u[j] / rr[j]; t < t1 {
				t1, k = t, j
			}
		}

		t2 := math.Inf(1)
		if !dependent {
			if zn := linalg.Dot(z, np); zn > dualTol {
				t2 = math.Max(0, -sp/zn)
			}
		}

		if math.IsInf(t1, 1) && math.IsInf(t2, 1) {
			kind := "constraint"
			if r.bound {
				kind = "bound"
			}
			return fmt.Errorf("%w: %s %d cannot be satisfied with the active set", domain.ErrInfeasible, kind, r.index)
		}

		if math.IsInf(t2, 1) {
			for j := range s.u {
				s.u[j] -= t1 * rr[j]
			}
			up += t1
			s.drop(k)
			s.it++
			continue
		}

		t := math.Min(t1, t2)
		for i := range s.x {
			s.x[i] += t * z[i]
		}
		for j := range s.u {
			s.u[j] -= t * rr[j]
		}
		up += t
		s.it++
		if t2 <= t1 {
			s.active = append(s.active, p)
			s.u = append(s.u, up)
			return nil
		}
		s.drop(k)
	}
}

func (s *activeSet) drop(k int) {
	s.active = append(s.active[:k], s.active[k+1:]...)
	s.u = append(s.u[:k], s.u[k+1:]...)
}

// step returns the primal direction z and the dual direction r for adding np,
// solving [H N; Nᵀ 0][z; r] = [np; 0]. When np lies in the span of the active
// normals z is zero and r holds the expansion coefficients.
func (s *activeSet) step(np []float64) (z, r []float64, dependent bool, err error) {
	q := len(s.active)
	if q == 0 {
		if linalg.Norm(np) == 0 {
			return nil, nil, true, nil
		}
		z, err = s.solveH(np)
		return z, nil, false, err
	}

	nmat := mat.NewDense(s.n, q, nil)
	for j, p := range s.active {
		nmat.SetCol(j, s.normal(p))
	}

	var c mat.VecDense
	if err := c.SolveVec(nmat, mat.NewVecDense(s.n, linalg.CloneVec(np))); err != nil && !finite(c.RawVector().Data) {
		return nil, nil, false, fmt.Errorf("%w: %v", domain.ErrSolveFailure, err)
	}
	coef := linalg.CloneVec(c.RawVector().Data)
	resid := linalg.Sub(np, linalg.MulVec(nmat, coef))
	if linalg.Norm(resid) <= dependenceTol*math.Max(1, linalg.Norm(np)) {
		return nil, coef, true, nil
	}

	m := s.n + q
	kkt := mat.NewDense(m, m, nil)
	kkt.Slice(0, s.n, 0, s.n).(*mat.Dense).Copy(s.in.h)
	kkt.Slice(0, s.n, s.n, m).(*mat.Dense).Copy(nmat)
	kkt.Slice(s.n, m, 0, s.n).(*mat.Dense).Copy(nmat.T())
	rhs := make([]float64, m)
	copy(rhs, np)

	sol, err := solveDense(kkt, rhs)
	if err != nil {
		return nil, nil, false, err
	}
	return sol[:s.n], sol[s.n:], false, nil
}

func (s *activeSet) solveH(b []float64) ([]float64, error) {
	var x mat.VecDense
	if err := s.in.chol.SolveVecTo(&x, mat.NewVecDense(len(b), linalg.CloneVec(b))); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSolveFailure, err)
	}
	return linalg.CloneVec(x.RawVector().Data), nil
}

// solveDense solves a square system, accepting ill-conditioned results that stay finite.
func solveDense(a *mat.Dense, b []float64) ([]float64, error) {
	var x mat.VecDense
	err := x.SolveVec(a, mat.NewVecDense(len(b), linalg.CloneVec(b)))
	if err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || !finite(x.RawVector().Data) {
			return nil, fmt.Errorf("%w: %w", domain.ErrSolveFailure, errSingularKKT)
		}
	}
	return linalg.CloneVec(x.RawVector().Data), nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return len(v) > 0
}

// solveWorkingSet solves the equality QP in which every row of guess is active
// and reports whether the result satisfies the KKT conditions of the full problem.
func solveWorkingSet(in *solverInput, guess []int) (*activeSetResult, bool) {
	n, q := len(in.g), len(guess)
	m := n + q
	kkt := mat.NewDense(m, m, nil)
	kkt.Slice(0, n, 0, n).(*mat.Dense).Copy(in.h)
	rhs := make([]float64, m)
	for i := 0; i < n; i++ {
		rhs[i] = -in.g[i]
	}
	for j, p := range guess {
		r := in.rows[p]
		for i := 0; i < n; i++ {
			kkt.Set(i, n+j, -r.normal[i])
			kkt.Set(n+j, i, r.normal[i])
		}
		rhs[n+j] = r.rhs
	}
	sol, err := solveDense(kkt, rhs)
	if err != nil {
		return nil, false
	}
	x, mult := sol[:n], sol[n:]
	for j, p := range guess {
		if !in.rows[p].equality && mult[j] < -feasibilityTol {
			return nil, false
		}
	}
	for _, r := range in.rows {
		v := r.slack(x)
		if v < -r.tol() || (r.equality && v > r.tol()) {
			return nil, false
		}
	}
	return &activeSetResult{x: linalg.CloneVec(x), active: guess, mult: linalg.CloneVec(mult)}, true
}
