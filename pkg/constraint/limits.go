package constraint

import (
	"fmt"

	"github.com/aretw0/sot/pkg/domain"
)

// JointLimits bounds the joint velocity so that q + dq stays within [qmin, qmax].
// The bounds are lambda*(qmin - q) and lambda*(qmax - q).
type JointLimits struct {
	*Base
	qmin, qmax []float64
	lambda     float64
}

// LimitsOption configures a JointLimits constraint.
type LimitsOption func(*JointLimits)

// WithBoundScaling sets the fraction of the distance to the limit allowed per tick.
func WithBoundScaling(lambda float64) LimitsOption {
	return func(j *JointLimits) {
		j.lambda = lambda
	}
}

// NewJointLimits creates the constraint. qmin and qmax must have the same
// length and qmin <= qmax elementwise.
func NewJointLimits(id string, qmin, qmax []float64, opts ...LimitsOption) (*JointLimits, error) {
	if len(qmin) != len(qmax) || len(qmin) == 0 {
		return nil, fmt.Errorf("%w: %s: qmin/qmax have %d/%d elements", domain.ErrValidation, id, len(qmin), len(qmax))
	}
	for i := range qmin {
		if qmin[i] > qmax[i] {
			return nil, fmt.Errorf("%w: %s: joint %d has qmin %g above qmax %g", domain.ErrValidation, id, i, qmin[i], qmax[i])
		}
	}
	j := &JointLimits{
		Base:   New(id, len(qmin)),
		qmin:   append([]float64(nil), qmin...),
		qmax:   append([]float64(nil), qmax...),
		lambda: 1,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.lambda <= 0 || j.lambda > 1 {
		return nil, fmt.Errorf("%w: %s: bound scaling %g outside (0, 1]", domain.ErrValidation, id, j.lambda)
	}
	if err := j.Update(make([]float64, len(qmin))); err != nil {
		return nil, err
	}
	return j, nil
}

// Update recomputes the velocity bounds at q.
func (j *JointLimits) Update(q []float64) error {
	if len(q) != j.xSize {
		return fmt.Errorf("%w: %s: state has %d elements, want %d", domain.ErrShapeMismatch, j.id, len(q), j.xSize)
	}
	lb := make([]float64, j.xSize)
	ub := make([]float64, j.xSize)
	for i := range q {
		lb[i] = j.lambda * (j.qmin[i] - q[i])
		ub[i] = j.lambda * (j.qmax[i] - q[i])
	}
	return j.SetBounds(lb, ub)
}

// VelocityLimits is the static box |dq| <= dqmax*dt.
type VelocityLimits struct {
	*Base
}

// NewVelocityLimits creates the box. A single dqmax value applies to every joint.
func NewVelocityLimits(id string, dqmax []float64, dt float64, xSize int) (*VelocityLimits, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: %s: dt must be positive", domain.ErrValidation, id)
	}
	if len(dqmax) == 1 && xSize > 1 {
		v := dqmax[0]
		dqmax = make([]float64, xSize)
		for i := range dqmax {
			dqmax[i] = v
		}
	}
	if len(dqmax) != xSize {
		return nil, fmt.Errorf("%w: %s: dqmax has %d elements, want 1 or %d", domain.ErrValidation, id, len(dqmax), xSize)
	}
	lb := make([]float64, xSize)
	ub := make([]float64, xSize)
	for i, v := range dqmax {
		if v < 0 {
			return nil, fmt.Errorf("%w: %s: negative velocity limit on joint %d", domain.ErrValidation, id, i)
		}
		lb[i], ub[i] = -v*dt, v*dt
	}
	c := &VelocityLimits{Base: New(id, xSize)}
	if err := c.SetBounds(lb, ub); err != nil {
		return nil, err
	}
	return c, nil
}
