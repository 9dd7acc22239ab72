package qp

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/ports"
)

// Log exports the problem data and solution under the given level index:
// H_i, g_i, A_i, lA_i, uA_i, l_i, u_i and solution_i.
func (p *Problem) Log(sink ports.DiagnosticSink, index int) {
	sink.AddMatrix(fmt.Sprintf("H_%d", index), p.d.h)
	sink.AddVector(fmt.Sprintf("g_%d", index), p.d.g)
	sink.AddMatrix(fmt.Sprintf("A_%d", index), p.d.a)
	sink.AddVector(fmt.Sprintf("lA_%d", index), p.d.lA)
	sink.AddVector(fmt.Sprintf("uA_%d", index), p.d.uA)
	sink.AddVector(fmt.Sprintf("l_%d", index), p.d.l)
	sink.AddVector(fmt.Sprintf("u_%d", index), p.d.u)
	sink.AddVector(fmt.Sprintf("solution_%d", index), p.x)
}

// Information describes a problem for operators.
type Information struct {
	Name              string  `json:"name"`
	State             string  `json:"state"`
	HessianType       string  `json:"hessian_type"`
	Regularisation    float64 `json:"regularisation"`
	Variables         int     `json:"variables"`
	Constraints       int     `json:"constraints"`
	Bounds            int     `json:"bounds"`
	ActiveBounds      int     `json:"active_bounds"`
	ActiveConstraints int     `json:"active_constraints"`
	NWSR              int     `json:"nwsr"`
	LastTier          string  `json:"last_tier"`
}

// ProblemInformation returns a summary of sizes, options and activity.
func (p *Problem) ProblemInformation() Information {
	info := Information{
		Name:           p.name,
		State:          p.state.String(),
		HessianType:    p.opts.HessianType.String(),
		Regularisation: p.opts.Regularisation(),
		Variables:      p.shape.Variables,
		Constraints:    p.shape.Constraints,
		NWSR:           p.opts.NWSR,
		LastTier:       p.lastTier.String(),
	}
	for i := range p.d.l {
		if p.d.l[i] > -p.opts.Infty || p.d.u[i] < p.opts.Infty {
			info.Bounds++
		}
	}
	for _, a := range p.activeBounds {
		if a != Inactive {
			info.ActiveBounds++
		}
	}
	for _, a := range p.activeConstrs {
		if a != Inactive {
			info.ActiveConstraints++
		}
	}
	return info
}

// Objective returns 1/2 xᵀHx + gᵀx at the current solution, without regularisation.
func (p *Problem) Objective() float64 {
	if len(p.x) == 0 {
		return 0
	}
	hx := linalg.MulVec(p.d.h, p.x)
	return 0.5*linalg.Dot(p.x, hx) + linalg.Dot(p.d.g, p.x)
}
