package constraint

import (
	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/ports"
)

// IsEquality reports whether c has equality rows.
func IsEquality(c ports.Constraint) bool {
	return linalg.Rows(c.Aeq()) > 0
}

// IsInequality reports whether c has inequality rows.
func IsInequality(c ports.Constraint) bool {
	return linalg.Rows(c.Aineq()) > 0
}

// IsUnilateral reports whether the inequality rows have a single side.
func IsUnilateral(c ports.Constraint) bool {
	return IsInequality(c) && (len(c.BLowerBound()) == 0 || len(c.BUpperBound()) == 0)
}

// IsBilateral reports whether the inequality rows are bounded on both sides.
func IsBilateral(c ports.Constraint) bool {
	return IsInequality(c) && !IsUnilateral(c)
}

// HasBounds reports whether c carries box bounds on the variables.
func HasBounds(c ports.Constraint) bool {
	return len(c.LowerBound()) > 0 || len(c.UpperBound()) > 0
}

// IsConstraint reports whether c has general rows.
func IsConstraint(c ports.Constraint) bool {
	return IsEquality(c) || IsInequality(c)
}

// IsBound reports whether c only bounds the variables.
func IsBound(c ports.Constraint) bool {
	return HasBounds(c) && !IsConstraint(c)
}
