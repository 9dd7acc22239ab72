package ports

import (
	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Constraint describes the feasible region of the command vector.
// Any of the fields may be empty. A nil matrix has zero rows.
type Constraint interface {
	ID() string
	XSize() int

	LowerBound() []float64
	UpperBound() []float64

	Aeq() *mat.Dense
	Beq() []float64

	Aineq() *mat.Dense
	BLowerBound() []float64
	BUpperBound() []float64

	// Update recomputes the state dependent fields for the state x.
	// Calling it twice with the same x must leave the constraint unchanged.
	Update(x []float64) error

	// Log exports the non-empty fields to the sink.
	Log(sink DiagnosticSink)
}

// ConstraintSource resolves constraint handles.
type ConstraintSource interface {
	Constraint(h domain.ConstraintHandle) (Constraint, error)
}

// ConstraintBinder is implemented by tasks that need to resolve their attached
// constraints during Update. The registry binds them on registration.
type ConstraintBinder interface {
	BindConstraints(src ConstraintSource)
}
