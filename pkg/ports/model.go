package ports

import "gonum.org/v1/gonum/mat"

// ModelProvider exposes the kinematic quantities tasks and constraints are built from.
// Implementations cache by state: SetState with the same q is a no-op.
type ModelProvider interface {
	// DoF returns the size of the joint vector.
	DoF() int

	SetState(q []float64) error
	State() []float64

	// Pose returns the planar pose (x, y, theta) of a frame.
	Pose(frame string) ([3]float64, error)
	// Jacobian returns the 2 x DoF position Jacobian of a frame.
	Jacobian(frame string) (*mat.Dense, error)

	CoM() [2]float64
	CoMJacobian() *mat.Dense

	JointLimits() (qmin, qmax []float64)
}
