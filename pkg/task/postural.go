package task

import (
	"fmt"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
)

// Postural drives the joints toward a reference posture: A = I, b = q_ref - q.
type Postural struct {
	*Base
	ref []float64
}

// NewPostural creates the task. The variable count is len(ref).
func NewPostural(id string, ref []float64, opts ...Option) (*Postural, error) {
	if len(ref) == 0 {
		return nil, fmt.Errorf("%w: %s: empty reference", domain.ErrValidation, id)
	}
	t := &Postural{Base: NewBase(id, len(ref), opts...), ref: linalg.CloneVec(ref)}
	if err := t.SetTask(linalg.Identity(len(ref)), linalg.CloneVec(ref)); err != nil {
		return nil, err
	}
	return t, nil
}

// Reference returns the target posture.
func (t *Postural) Reference() []float64 { return linalg.CloneVec(t.ref) }

// SetReference changes the target posture. It takes effect on the next Update.
func (t *Postural) SetReference(ref []float64) error {
	if len(ref) != t.xSize {
		return fmt.Errorf("%w: %s: reference has %d elements, want %d", domain.ErrValidation, t.id, len(ref), t.xSize)
	}
	t.ref = linalg.CloneVec(ref)
	return nil
}

// Update sets b = q_ref - q and updates the attached constraints.
func (t *Postural) Update(q []float64) error {
	if len(q) != t.xSize {
		return fmt.Errorf("%w: %s: state has %d elements, want %d", domain.ErrShapeMismatch, t.id, len(q), t.xSize)
	}
	if err := t.SetTask(linalg.Identity(t.xSize), linalg.Sub(t.ref, q)); err != nil {
		return err
	}
	return t.UpdateConstraints(q)
}

// Cartesian tracks the planar position of a model frame: A = J, b = p_ref - p.
type Cartesian struct {
	*Base
	model ports.ModelProvider
	frame string
	ref   [2]float64
}

// NewCartesian creates the task for a frame of the model.
func NewCartesian(id string, model ports.ModelProvider, frame string, ref [2]float64, opts ...Option) (*Cartesian, error) {
	t := &Cartesian{Base: NewBase(id, model.DoF(), opts...), model: model, frame: frame, ref: ref}
	if err := t.recompute(model.State()); err != nil {
		return nil, err
	}
	return t, nil
}

// Reference returns the target position.
func (t *Cartesian) Reference() [2]float64 { return t.ref }

// SetReference changes the target position. It takes effect on the next Update.
func (t *Cartesian) SetReference(ref [2]float64) { t.ref = ref }

// Update recomputes the Jacobian and the position error at q.
func (t *Cartesian) Update(q []float64) error {
	if err := t.recompute(q); err != nil {
		return err
	}
	return t.UpdateConstraints(q)
}

func (t *Cartesian) recompute(q []float64) error {
	if err := t.model.SetState(q); err != nil {
		return fmt.Errorf("%s: %w", t.id, err)
	}
	j, err := t.model.Jacobian(t.frame)
	if err != nil {
		return fmt.Errorf("%s: %w", t.id, err)
	}
	pose, err := t.model.Pose(t.frame)
	if err != nil {
		return fmt.Errorf("%s: %w", t.id, err)
	}
	return t.SetTask(j, []float64{t.ref[0] - pose[0], t.ref[1] - pose[1]})
}
