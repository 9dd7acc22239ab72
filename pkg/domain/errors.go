package domain

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when matrix or vector dimensions are inconsistent.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrValidation is returned when a setter or constructor rejects its input.
var ErrValidation = errors.New("validation failed")

// ErrInvalidLambda is returned when a task gain is negative, or above one for bounded tasks.
var ErrInvalidLambda = fmt.Errorf("%w: invalid lambda", ErrValidation)

// ErrSolveFailure is returned when the QP backend could not produce a solution.
var ErrSolveFailure = errors.New("solve failure")

// ErrInfeasible is returned when the constraints of a problem admit no solution.
// It matches ErrSolveFailure with errors.Is.
var ErrInfeasible = fmt.Errorf("%w: infeasible", ErrSolveFailure)

// ErrNotInitialized is returned when an update or solve is requested before a successful init.
var ErrNotInitialized = errors.New("problem not initialized")

// ErrUnknownHandle is returned when a handle does not address a registered entry.
var ErrUnknownHandle = errors.New("unknown handle")

// ErrSnapshotNotFound is returned when no snapshot exists for the requested tick.
var ErrSnapshotNotFound = errors.New("snapshot not found")
