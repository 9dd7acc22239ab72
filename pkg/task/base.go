package task

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Base is a task with explicitly set A and b. Used alone it is a static task.
type Base struct {
	id    string
	xSize int

	a      *mat.Dense
	b      []float64
	weight *mat.Dense

	lambda        float64
	lambdaBounded bool

	constraints []domain.ConstraintHandle
	src         ports.ConstraintSource
}

// Option configures a Base.
type Option func(*Base)

// WithUnboundedLambda allows gains above one.
func WithUnboundedLambda() Option {
	return func(b *Base) {
		b.lambdaBounded = false
	}
}

// WithConstraints attaches constraint handles at construction.
func WithConstraints(hs ...domain.ConstraintHandle) Option {
	return func(b *Base) {
		b.constraints = append(b.constraints, hs...)
	}
}

// NewBase creates a task over xSize variables with no rows, unit gain and
// identity weight. Gains are bounded to [0, 1] unless WithUnboundedLambda is set.
func NewBase(id string, xSize int, opts ...Option) *Base {
	b := &Base{id: id, xSize: xSize, lambda: 1, lambdaBounded: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) ID() string      { return b.id }
func (b *Base) XSize() int      { return b.xSize }
func (b *Base) A() *mat.Dense   { return b.a }
func (b *Base) B() []float64    { return b.b }
func (b *Base) Lambda() float64 { return b.lambda }

// Weight returns the weight matrix, the identity when none matching rows(A) is set.
func (b *Base) Weight() *mat.Dense {
	r := linalg.Rows(b.a)
	if linalg.Rows(b.weight) == r && r > 0 {
		return b.weight
	}
	return linalg.Identity(r)
}

// SetLambda sets the gain applied to b.
func (b *Base) SetLambda(lambda float64) error {
	if lambda < 0 {
		return fmt.Errorf("%w: %s: %g is negative", domain.ErrInvalidLambda, b.id, lambda)
	}
	if b.lambdaBounded && lambda > 1 {
		return fmt.Errorf("%w: %s: %g is above 1", domain.ErrInvalidLambda, b.id, lambda)
	}
	b.lambda = lambda
	return nil
}

// SetWeight sets a square weight with side rows(A).
func (b *Base) SetWeight(w *mat.Dense) error {
	r := linalg.Rows(b.a)
	if linalg.Rows(w) != r || linalg.Cols(w) != r {
		return fmt.Errorf("%w: %s: weight is %dx%d, want %dx%d", domain.ErrValidation, b.id, linalg.Rows(w), linalg.Cols(w), r, r)
	}
	b.weight = linalg.Clone(w)
	return nil
}

// SetTask sets A and b. A must have xSize columns and as many rows as b has elements.
func (b *Base) SetTask(a *mat.Dense, rhs []float64) error {
	r := linalg.Rows(a)
	if r > 0 && linalg.Cols(a) != b.xSize {
		return fmt.Errorf("%w: %s: A has %d columns, want %d", domain.ErrShapeMismatch, b.id, linalg.Cols(a), b.xSize)
	}
	if len(rhs) != r {
		return fmt.Errorf("%w: %s: b has %d elements, A has %d rows", domain.ErrShapeMismatch, b.id, len(rhs), r)
	}
	b.a = a
	b.b = rhs
	return nil
}

// Constraints returns the attached constraint handles.
func (b *Base) Constraints() []domain.ConstraintHandle {
	return append([]domain.ConstraintHandle(nil), b.constraints...)
}

// AddConstraint attaches a constraint. Attaching the same handle twice is a no-op.
func (b *Base) AddConstraint(h domain.ConstraintHandle) {
	for _, c := range b.constraints {
		if c == h {
			return
		}
	}
	b.constraints = append(b.constraints, h)
}

// RemoveConstraint detaches a constraint.
func (b *Base) RemoveConstraint(h domain.ConstraintHandle) {
	for i, c := range b.constraints {
		if c == h {
			b.constraints = append(b.constraints[:i], b.constraints[i+1:]...)
			return
		}
	}
}

// BindConstraints sets the source used to resolve attached constraints.
func (b *Base) BindConstraints(src ports.ConstraintSource) {
	b.src = src
}

// Update updates the attached constraints. Static tasks keep A and b.
func (b *Base) Update(x []float64) error {
	return b.UpdateConstraints(x)
}

// UpdateConstraints updates every attached constraint at x.
func (b *Base) UpdateConstraints(x []float64) error {
	return updateConstraints(b.src, b.id, b.constraints, x)
}

func updateConstraints(src ports.ConstraintSource, id string, hs []domain.ConstraintHandle, x []float64) error {
	if len(hs) == 0 {
		return nil
	}
	if src == nil {
		return fmt.Errorf("%w: %s: constraints attached but task is not registered", domain.ErrUnknownHandle, id)
	}
	for _, h := range hs {
		c, err := src.Constraint(h)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if err := c.Update(x); err != nil {
			return fmt.Errorf("%s: update constraint %s: %w", id, c.ID(), err)
		}
	}
	return nil
}

// Log exports <id>_A, <id>_b and <id>_W.
func (b *Base) Log(sink ports.DiagnosticSink) {
	sink.AddMatrix(b.id+"_A", b.a)
	sink.AddVector(b.id+"_b", b.b)
	sink.AddMatrix(b.id+"_W", b.Weight())
}

// Static is a task with fixed A and b.
type Static struct {
	*Base
}

// NewLinear creates a static task A x = b.
func NewLinear(id string, a *mat.Dense, rhs []float64, opts ...Option) (*Static, error) {
	t := &Static{Base: NewBase(id, linalg.Cols(a), opts...)}
	if err := t.SetTask(linalg.Clone(a), linalg.CloneVec(rhs)); err != nil {
		return nil, err
	}
	return t, nil
}
