// Package model provides a planar serial chain implementing ports.ModelProvider.
//
// The chain has revolute joints about the z axis, the first one at the origin.
// Frame "link<k>" (k = 1..n) is the tip of link k and "ee" is the tip of the last link.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/sot/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// EndEffector names the tip of the last link.
const EndEffector = "ee"

// PlanarChain is a planar serial manipulator.
type PlanarChain struct {
	lengths []float64
	masses  []float64
	qmin    []float64
	qmax    []float64
	q       []float64
}

// Option configures a PlanarChain.
type Option func(*PlanarChain)

// WithMasses sets the link masses, concentrated at the middle of each link.
func WithMasses(m ...float64) Option {
	return func(c *PlanarChain) {
		c.masses = append([]float64(nil), m...)
	}
}

// WithJointLimits sets the joint position limits.
func WithJointLimits(qmin, qmax []float64) Option {
	return func(c *PlanarChain) {
		c.qmin = append([]float64(nil), qmin...)
		c.qmax = append([]float64(nil), qmax...)
	}
}

// NewPlanarChain creates a chain with the given link lengths. Masses default to
// one per link and joint limits to ±pi.
func NewPlanarChain(lengths []float64, opts ...Option) (*PlanarChain, error) {
	n := len(lengths)
	if n == 0 {
		return nil, fmt.Errorf("%w: planar chain needs at least one link", domain.ErrValidation)
	}
	c := &PlanarChain{lengths: append([]float64(nil), lengths...), q: make([]float64, n)}
	for _, opt := range opts {
		opt(c)
	}
	if c.masses == nil {
		c.masses = filled(n, 1)
	}
	if c.qmin == nil {
		c.qmin, c.qmax = filled(n, -math.Pi), filled(n, math.Pi)
	}
	if len(c.masses) != n || len(c.qmin) != n || len(c.qmax) != n {
		return nil, fmt.Errorf("%w: planar chain masses/limits must have %d elements", domain.ErrValidation, n)
	}
	var total float64
	for _, m := range c.masses {
		if m < 0 {
			return nil, fmt.Errorf("%w: negative link mass", domain.ErrValidation)
		}
		total += m
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: planar chain has zero mass", domain.ErrValidation)
	}
	return c, nil
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (c *PlanarChain) DoF() int { return len(c.lengths) }

// SetState stores q. It is cheap and idempotent.
func (c *PlanarChain) SetState(q []float64) error {
	if len(q) != len(c.q) {
		return fmt.Errorf("%w: state has %d elements, model has %d joints", domain.ErrShapeMismatch, len(q), len(c.q))
	}
	copy(c.q, q)
	return nil
}

func (c *PlanarChain) State() []float64 { return append([]float64(nil), c.q...) }

func (c *PlanarChain) JointLimits() (qmin, qmax []float64) {
	return append([]float64(nil), c.qmin...), append([]float64(nil), c.qmax...)
}

func (c *PlanarChain) frameIndex(frame string) (int, error) {
	if frame == EndEffector {
		return len(c.lengths), nil
	}
	if k, err := strconv.Atoi(strings.TrimPrefix(frame, "link")); err == nil && strings.HasPrefix(frame, "link") && k >= 1 && k <= len(c.lengths) {
		return k, nil
	}
	return 0, fmt.Errorf("%w: unknown frame %q", domain.ErrValidation, frame)
}

// angles returns the absolute orientation of every link.
func (c *PlanarChain) angles() []float64 {
	th := make([]float64, len(c.q))
	var acc float64
	for i, qi := range c.q {
		acc += qi
		th[i] = acc
	}
	return th
}

// Pose returns (x, y, theta) of the tip of link k.
func (c *PlanarChain) Pose(frame string) ([3]float64, error) {
	k, err := c.frameIndex(frame)
	if err != nil {
		return [3]float64{}, err
	}
	th := c.angles()
	var p [3]float64
	for i := 0; i < k; i++ {
		p[0] += c.lengths[i] * math.Cos(th[i])
		p[1] += c.lengths[i] * math.Sin(th[i])
	}
	p[2] = th[k-1]
	return p, nil
}

// Jacobian returns the 2 x n position Jacobian of the tip of link k.
func (c *PlanarChain) Jacobian(frame string) (*mat.Dense, error) {
	k, err := c.frameIndex(frame)
	if err != nil {
		return nil, err
	}
	n := len(c.lengths)
	th := c.angles()
	j := mat.NewDense(2, n, nil)
	for col := 0; col < k; col++ {
		var dx, dy float64
		for i := col; i < k; i++ {
			dx -= c.lengths[i] * math.Sin(th[i])
			dy += c.lengths[i] * math.Cos(th[i])
		}
		j.Set(0, col, dx)
		j.Set(1, col, dy)
	}
	return j, nil
}

func (c *PlanarChain) totalMass() float64 {
	var m float64
	for _, v := range c.masses {
		m += v
	}
	return m
}

// CoM returns the planar center of mass.
func (c *PlanarChain) CoM() [2]float64 {
	th := c.angles()
	var com [2]float64
	var base [2]float64
	for i, l := range c.lengths {
		mid := [2]float64{base[0] + 0.5*l*math.Cos(th[i]), base[1] + 0.5*l*math.Sin(th[i])}
		com[0] += c.masses[i] * mid[0]
		com[1] += c.masses[i] * mid[1]
		base[0] += l * math.Cos(th[i])
		base[1] += l * math.Sin(th[i])
	}
	m := c.totalMass()
	return [2]float64{com[0] / m, com[1] / m}
}

// CoMJacobian returns the 2 x n Jacobian of CoM.
func (c *PlanarChain) CoMJacobian() *mat.Dense {
	n := len(c.lengths)
	th := c.angles()
	m := c.totalMass()
	j := mat.NewDense(2, n, nil)
	for link := 0; link < n; link++ {
		w := c.masses[link] / m
		for col := 0; col <= link; col++ {
			var dx, dy float64
			for i := col; i <= link; i++ {
				l := c.lengths[i]
				if i == link {
					l *= 0.5
				}
				dx -= l * math.Sin(th[i])
				dy += l * math.Cos(th[i])
			}
			j.Set(0, col, j.At(0, col)+w*dx)
			j.Set(1, col, j.At(1, col)+w*dy)
		}
	}
	return j
}
