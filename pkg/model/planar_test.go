package model_test

import (
	"math"
	"testing"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanarChain_Pose(t *testing.T) {
	chain, err := model.NewPlanarChain([]float64{1, 0.5})
	require.NoError(t, err)

	p, err := chain.Pose(model.EndEffector)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.5, 0, 0}, p[:], 1e-12)

	require.NoError(t, chain.SetState([]float64{math.Pi / 2, -math.Pi / 2}))
	p, err = chain.Pose(model.EndEffector)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 1, 0}, p[:], 1e-12)

	p, err = chain.Pose("link1")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, math.Pi / 2}, p[:], 1e-12)

	_, err = chain.Pose("link3")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, chain.SetState([]float64{0}), domain.ErrShapeMismatch)
}

func TestPlanarChain_JacobiansMatchFiniteDifferences(t *testing.T) {
	chain, err := model.NewPlanarChain([]float64{0.8, 0.6, 0.4}, model.WithMasses(2, 1, 0.5))
	require.NoError(t, err)
	q := []float64{0.3, -0.7, 1.1}
	require.NoError(t, chain.SetState(q))

	jee, err := chain.Jacobian(model.EndEffector)
	require.NoError(t, err)
	jcom := chain.CoMJacobian()

	const h = 1e-6
	for col := range q {
		plus := append([]float64(nil), q...)
		minus := append([]float64(nil), q...)
		plus[col] += h
		minus[col] -= h

		require.NoError(t, chain.SetState(plus))
		pp, _ := chain.Pose(model.EndEffector)
		cp := chain.CoM()
		require.NoError(t, chain.SetState(minus))
		pm, _ := chain.Pose(model.EndEffector)
		cm := chain.CoM()

		for r := 0; r < 2; r++ {
			assert.InDelta(t, (pp[r]-pm[r])/(2*h), jee.At(r, col), 1e-6)
			assert.InDelta(t, (cp[r]-cm[r])/(2*h), jcom.At(r, col), 1e-6)
		}
	}
}

func TestPlanarChain_Validation(t *testing.T) {
	_, err := model.NewPlanarChain(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = model.NewPlanarChain([]float64{1, 1}, model.WithMasses(1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	chain, err := model.NewPlanarChain([]float64{1, 1}, model.WithJointLimits([]float64{-1, -2}, []float64{1, 2}))
	require.NoError(t, err)
	qmin, qmax := chain.JointLimits()
	assert.Equal(t, []float64{-1, -2}, qmin)
	assert.Equal(t, []float64{1, 2}, qmax)
}
