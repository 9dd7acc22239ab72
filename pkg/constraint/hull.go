package constraint

import (
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Point is a planar point.
type Point [2]float64

// ConvexHull keeps the planar center of mass inside the convex hull of the
// support points, shrunk by a safety margin. Each hull edge yields one row
//
//	nᵀ J_com dq <= nᵀ p_edge - margin - nᵀ com
//
// with n the outward unit normal of the edge. The rows are one sided.
type ConvexHull struct {
	*Base
	model  ports.ModelProvider
	hull   []Point
	margin float64
}

// NewConvexHull creates the constraint. At least three non collinear support
// points are required.
func NewConvexHull(id string, model ports.ModelProvider, support []Point, margin float64) (*ConvexHull, error) {
	hull := Hull(support)
	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: %s: support polygon needs 3 non collinear points, got %d hull vertices", domain.ErrValidation, id, len(hull))
	}
	if margin < 0 {
		return nil, fmt.Errorf("%w: %s: negative margin", domain.ErrValidation, id)
	}
	c := &ConvexHull{Base: New(id, model.DoF()), model: model, hull: hull, margin: margin}
	if err := c.Update(model.State()); err != nil {
		return nil, err
	}
	return c, nil
}

// Vertices returns the hull in counter-clockwise order.
func (c *ConvexHull) Vertices() []Point {
	return append([]Point(nil), c.hull...)
}

// Update recomputes the rows from the model at q.
func (c *ConvexHull) Update(q []float64) error {
	if err := c.model.SetState(q); err != nil {
		return fmt.Errorf("%s: %w", c.id, err)
	}
	com := c.model.CoM()
	jcom := c.model.CoMJacobian()

	m := len(c.hull)
	a := mat.NewDense(m, c.xSize, nil)
	ub := make([]float64, m)
	for i := range c.hull {
		p0, p1 := c.hull[i], c.hull[(i+1)%m]
		dx, dy := p1[0]-p0[0], p1[1]-p0[1]
		norm := math.Hypot(dx, dy)
		nx, ny := dy/norm, -dx/norm
		for j := 0; j < c.xSize; j++ {
			a.Set(i, j, nx*jcom.At(0, j)+ny*jcom.At(1, j))
		}
		ub[i] = nx*p0[0] + ny*p0[1] - c.margin - (nx*com[0] + ny*com[1])
	}
	return c.SetInequality(a, nil, ub)
}

// Hull returns the convex hull of pts in counter-clockwise order using the
// monotone chain algorithm. Collinear points are dropped.
func Hull(pts []Point) []Point {
	ps := append([]Point(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
	if len(ps) < 3 {
		return ps
	}
	cross := func(o, a, b Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	var lower, upper []Point
	for _, p := range ps {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(ps) - 1; i >= 0; i-- {
		p := ps[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// CoMVelocity bounds the planar center of mass velocity:
// -vmax*dt <= J_com dq <= vmax*dt.
type CoMVelocity struct {
	*Base
	model ports.ModelProvider
	limit []float64
}

// NewCoMVelocity creates the constraint.
func NewCoMVelocity(id string, model ports.ModelProvider, vmax [2]float64, dt float64) (*CoMVelocity, error) {
	if dt <= 0 || vmax[0] < 0 || vmax[1] < 0 {
		return nil, fmt.Errorf("%w: %s: need dt > 0 and non negative vmax", domain.ErrValidation, id)
	}
	c := &CoMVelocity{
		Base:  New(id, model.DoF()),
		model: model,
		limit: []float64{vmax[0] * dt, vmax[1] * dt},
	}
	if err := c.Update(model.State()); err != nil {
		return nil, err
	}
	return c, nil
}

// Update recomputes the rows from the model at q.
func (c *CoMVelocity) Update(q []float64) error {
	if err := c.model.SetState(q); err != nil {
		return fmt.Errorf("%s: %w", c.id, err)
	}
	return c.SetInequality(linalg.Clone(c.model.CoMJacobian()), linalg.Scale(-1, c.limit), c.limit)
}
