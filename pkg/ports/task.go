package ports

import (
	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Task is a weighted linear least-squares objective ||A x - lambda*b||_W.
type Task interface {
	ID() string
	XSize() int

	A() *mat.Dense
	B() []float64
	Weight() *mat.Dense

	Lambda() float64
	// SetLambda keeps the previous gain and returns domain.ErrInvalidLambda
	// when the value is rejected.
	SetLambda(lambda float64) error

	// Constraints lists the handles of every constraint attached to the task.
	Constraints() []domain.ConstraintHandle

	// Update recomputes A and b for the state x, then updates the attached constraints.
	Update(x []float64) error

	Log(sink DiagnosticSink)
}

// TaskSource resolves task handles.
type TaskSource interface {
	Task(h domain.TaskHandle) (Task, error)
}

// Arena resolves both tasks and constraints.
type Arena interface {
	ConstraintSource
	TaskSource
}
