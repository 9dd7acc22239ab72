package sot_test

import (
	"context"
	"testing"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/constraint"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/model"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolver_PostureConverges(t *testing.T) {
	qref := []float64{0.4, -0.3, 0.8, 0.1}
	q := []float64{0, 0, 0, 0}
	qmin := linalg.Filled(4, -1)
	qmax := linalg.Filled(4, 1)

	reg := registry.NewRegistry()
	limits, err := constraint.NewJointLimits("joint_limits", qmin, qmax)
	require.NoError(t, err)
	postural, err := task.NewPostural("postural", qref)
	require.NoError(t, err)
	postural.AddConstraint(reg.AddConstraint(limits))
	require.NoError(t, postural.SetLambda(0.1))

	solver, err := sot.New(reg, domain.Stack{reg.AddTask(postural)}, 4)
	require.NoError(t, err)

	ctx := context.Background()
	prev := linalg.Norm(linalg.Sub(qref, q))
	for i := 0; i < 150; i++ {
		dq, err := solver.Tick(ctx, q)
		require.NoError(t, err, "tick %d", i)
		q = linalg.Add(q, dq)

		residual := linalg.Norm(linalg.Sub(qref, q))
		assert.LessOrEqual(t, residual, prev+1e-12, "residual must not grow at tick %d", i)
		prev = residual
	}
	for i := range q {
		assert.InDelta(t, qref[i], q[i], 1e-4)
	}
	assert.Equal(t, uint64(150), solver.TickCount())
}

func TestSolver_JointLimitsHold(t *testing.T) {
	reg := registry.NewRegistry()
	limits, err := constraint.NewJointLimits("joint_limits", []float64{-0.5, -0.5}, []float64{0.5, 0.5})
	require.NoError(t, err)
	postural, err := task.NewPostural("postural", []float64{2, -2})
	require.NoError(t, err)
	postural.AddConstraint(reg.AddConstraint(limits))
	require.NoError(t, postural.SetLambda(0.3))

	solver, err := sot.New(reg, domain.Stack{reg.AddTask(postural)}, 2)
	require.NoError(t, err)

	q := []float64{0, 0}
	for i := 0; i < 40; i++ {
		dq, err := solver.Tick(context.Background(), q)
		require.NoError(t, err)
		q = linalg.Add(q, dq)
		assert.LessOrEqual(t, q[0], 0.5+1e-9)
		assert.GreaterOrEqual(t, q[1], -0.5-1e-9)
	}
	assert.InDelta(t, 0.5, q[0], 1e-6)
	assert.InDelta(t, -0.5, q[1], 1e-6)
}

func TestSolver_CartesianOverPosture(t *testing.T) {
	chain, err := model.NewPlanarChain([]float64{1, 1, 1})
	require.NoError(t, err)
	q0 := []float64{0.3, 0.4, 0.5}
	require.NoError(t, chain.SetState(q0))

	target := [2]float64{1.5, 1.2}
	reg := registry.NewRegistry()
	ee, err := task.NewCartesian("ee", chain, "ee", target)
	require.NoError(t, err)
	require.NoError(t, ee.SetLambda(0.3))
	postural, err := task.NewPostural("postural", []float64{0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, postural.SetLambda(0.1))

	solver, err := sot.New(reg, domain.Stack{reg.AddTask(ee), reg.AddTask(postural)}, 3)
	require.NoError(t, err)

	// The first tick achieves the end-effector velocity exactly.
	require.NoError(t, chain.SetState(q0))
	j, err := chain.Jacobian("ee")
	require.NoError(t, err)
	pose, err := chain.Pose("ee")
	require.NoError(t, err)

	dq, err := solver.Tick(context.Background(), q0)
	require.NoError(t, err)
	v := linalg.MulVec(j, dq)
	assert.InDelta(t, 0.3*(target[0]-pose[0]), v[0], 1e-6)
	assert.InDelta(t, 0.3*(target[1]-pose[1]), v[1], 1e-6)

	q := linalg.Add(q0, dq)
	for i := 0; i < 120; i++ {
		dq, err := solver.Tick(context.Background(), q)
		require.NoError(t, err)
		q = linalg.Add(q, dq)
	}
	require.NoError(t, chain.SetState(q))
	pose, err = chain.Pose("ee")
	require.NoError(t, err)
	assert.InDelta(t, target[0], pose[0], 1e-4)
	assert.InDelta(t, target[1], pose[1], 1e-4)

	levels := solver.Levels()
	require.Len(t, levels, 2)
	assert.Equal(t, "ee", levels[0].TaskID)
	assert.Equal(t, "postural", levels[1].TaskID)
}

func TestSolver_HooksAndSink(t *testing.T) {
	reg := registry.NewRegistry()
	postural, err := task.NewPostural("postural", []float64{1})
	require.NoError(t, err)
	box := constraint.New("box", 1)
	require.NoError(t, box.SetBounds([]float64{-1}, []float64{1}))
	postural.AddConstraint(reg.AddConstraint(box))

	var starts, ends []uint64
	var failures int
	hooks := domain.LifecycleHooks{
		OnTickStart: func(_ context.Context, e *domain.TickEvent) { starts = append(starts, e.Tick) },
		OnTickEnd: func(_ context.Context, e *domain.TickEvent) {
			ends = append(ends, e.Tick)
			if e.Err != nil {
				failures++
			}
		},
	}
	store := memory.NewStore()
	solver, err := sot.New(reg, domain.Stack{reg.AddTask(postural)}, 1,
		sot.WithLifecycleHooks(hooks),
		sot.WithDiagnosticSink(observability.NewRecorder(store)),
		sot.WithName("hooks"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = solver.Tick(ctx, []float64{0})
	require.NoError(t, err)

	// Crossed bounds make the next tick infeasible.
	require.NoError(t, box.SetBounds([]float64{1}, []float64{-1}))
	_, err = solver.Tick(ctx, []float64{0})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSolveFailure)

	assert.Equal(t, []uint64{1, 2}, starts)
	assert.Equal(t, []uint64{1, 2}, ends)
	assert.Equal(t, 1, failures)

	ticks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ticks, "failed ticks are not exported")

	snap, err := store.Load(ctx, 1)
	require.NoError(t, err)
	for _, name := range []string{"H_0", "g_0", "solution_0", "postural_A", "postural_b", "box_lowerBound"} {
		assert.Contains(t, snap.Names(), name)
	}
	assert.Equal(t, []float64{1}, solver.LastSolution())
}

func TestSolver_RejectsBadStack(t *testing.T) {
	reg := registry.NewRegistry()
	p, err := task.NewPostural("p", []float64{0, 0})
	require.NoError(t, err)
	h := reg.AddTask(p)

	_, err = sot.New(reg, domain.Stack{}, 2)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = sot.New(reg, domain.Stack{h, h}, 2)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = sot.New(reg, domain.Stack{h}, 3)
	assert.Error(t, err)
}

func TestLoop_StopsAtTolerance(t *testing.T) {
	reg := registry.NewRegistry()
	p, err := task.NewPostural("p", []float64{1, 1})
	require.NoError(t, err)
	require.NoError(t, p.SetLambda(0.5))
	solver, err := sot.New(reg, domain.Stack{reg.AddTask(p)}, 2)
	require.NoError(t, err)

	var ticks int
	loop := sot.NewLoop(solver)
	loop.Tolerance = 1e-6
	loop.OnTick = func(int, []float64, []float64) { ticks++ }

	q, err := loop.Run(context.Background(), []float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1, q[0], 1e-5)
	assert.Less(t, ticks, 40)
}

func TestLoop_NeedsTermination(t *testing.T) {
	_, err := sot.NewLoop(nil).Run(context.Background(), nil)
	assert.Error(t, err)

	reg := registry.NewRegistry()
	p, _ := task.NewPostural("p", []float64{1})
	solver, err := sot.New(reg, domain.Stack{reg.AddTask(p)}, 1)
	require.NoError(t, err)
	_, err = sot.NewLoop(solver).Run(context.Background(), []float64{0})
	assert.Error(t, err)
}
