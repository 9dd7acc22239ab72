package registry_test

import (
	"testing"

	"github.com/aretw0/sot/pkg/constraint"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Handles(t *testing.T) {
	reg := registry.NewRegistry()
	c := constraint.New("limits", 2)

	h1 := reg.AddConstraint(c)
	h2 := reg.AddConstraint(c)
	assert.NotEqual(t, h1, h2, "each registration is a distinct instance")

	got, err := reg.Constraint(h1)
	require.NoError(t, err)
	assert.Equal(t, "limits", got.ID())

	_, err = reg.Constraint(domain.ConstraintHandle(42))
	assert.ErrorIs(t, err, domain.ErrUnknownHandle)
	_, err = reg.Task(domain.TaskHandle(-1))
	assert.ErrorIs(t, err, domain.ErrUnknownHandle)

	found, ok := reg.ConstraintByID("limits")
	assert.True(t, ok)
	assert.Equal(t, h1, found)
}

func TestRegistry_BindsTaskConstraints(t *testing.T) {
	reg := registry.NewRegistry()
	limits, err := constraint.NewJointLimits("joint_limits", []float64{-1, -1}, []float64{1, 1})
	require.NoError(t, err)
	hc := reg.AddConstraint(limits)

	postural, err := task.NewPostural("postural", []float64{0, 0})
	require.NoError(t, err)
	postural.AddConstraint(hc)
	ht := reg.AddTask(postural)

	tk, err := reg.Task(ht)
	require.NoError(t, err)
	require.NoError(t, tk.Update([]float64{0.5, -0.5}))

	assert.InDeltaSlice(t, []float64{-1.5, -0.5}, limits.LowerBound(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 1.5}, limits.UpperBound(), 1e-12)

	id, ok := reg.TaskByID("postural")
	assert.True(t, ok)
	assert.Equal(t, ht, id)
	tasks, constraints := reg.Len()
	assert.Equal(t, 1, tasks)
	assert.Equal(t, 1, constraints)
}
