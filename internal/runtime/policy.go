package runtime

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// PriorityPolicy decides how a lower level is kept from degrading the levels above it.
// Given the task matrix A_i of a higher level and its optimal value A_i x_i*,
// it returns the rows added to every lower level.
type PriorityPolicy interface {
	Name() string
	Rows(a *mat.Dense, target []float64) (lower, upper []float64)
}

// PinEquality pins every higher level to its optimum: A_i x = A_i x_i*.
type PinEquality struct{}

func (PinEquality) Name() string { return "pin" }

func (PinEquality) Rows(_ *mat.Dense, target []float64) (lower, upper []float64) {
	return linalg.CloneVec(target), linalg.CloneVec(target)
}

// RelaxedBand lets higher levels move by at most Eps per row:
// A_i x_i* - Eps <= A_i x <= A_i x_i* + Eps.
type RelaxedBand struct {
	Eps float64
}

func (RelaxedBand) Name() string { return "band" }

func (r RelaxedBand) Rows(_ *mat.Dense, target []float64) (lower, upper []float64) {
	lower = make([]float64, len(target))
	upper = make([]float64, len(target))
	for i, v := range target {
		lower[i] = v - r.Eps
		upper[i] = v + r.Eps
	}
	return lower, upper
}

// ParsePolicy maps a configuration name to a policy.
func ParsePolicy(name string, eps float64) (PriorityPolicy, error) {
	switch name {
	case "", "pin", "equality":
		return PinEquality{}, nil
	case "band", "relaxed":
		if eps < 0 {
			return nil, fmt.Errorf("%w: band width %g is negative", domain.ErrValidation, eps)
		}
		return RelaxedBand{Eps: eps}, nil
	}
	return nil, fmt.Errorf("%w: unknown priority policy %q", domain.ErrValidation, name)
}
