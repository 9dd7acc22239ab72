package task_test

import (
	"math"
	"testing"

	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/constraint"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/model"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSetLambda(t *testing.T) {
	p, err := task.NewPostural("postural", []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Lambda())

	require.NoError(t, p.SetLambda(0.1))
	assert.Equal(t, 0.1, p.Lambda())

	assert.ErrorIs(t, p.SetLambda(-0.5), domain.ErrInvalidLambda)
	assert.ErrorIs(t, p.SetLambda(1.5), domain.ErrInvalidLambda)
	assert.ErrorIs(t, p.SetLambda(1.5), domain.ErrValidation)
	assert.Equal(t, 0.1, p.Lambda(), "rejected gains keep the previous value")

	free, err := task.NewPostural("free", []float64{0}, task.WithUnboundedLambda())
	require.NoError(t, err)
	require.NoError(t, free.SetLambda(3))
	assert.ErrorIs(t, free.SetLambda(-1), domain.ErrInvalidLambda)
}

func TestWeight(t *testing.T) {
	p, err := task.NewPostural("postural", []float64{0, 0})
	require.NoError(t, err)
	assert.True(t, mat.Equal(linalg.Identity(2), p.Weight()))

	w := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	require.NoError(t, p.SetWeight(w))
	assert.True(t, mat.Equal(w, p.Weight()))

	assert.ErrorIs(t, p.SetWeight(linalg.Identity(3)), domain.ErrValidation)
	assert.True(t, mat.Equal(w, p.Weight()))
}

func TestPostural_Update(t *testing.T) {
	p, err := task.NewPostural("postural", []float64{1, 2})
	require.NoError(t, err)

	require.NoError(t, p.Update([]float64{0.5, 0.5}))
	assert.Equal(t, []float64{0.5, 1.5}, p.B())
	assert.True(t, mat.Equal(linalg.Identity(2), p.A()))

	require.NoError(t, p.Update([]float64{0.5, 0.5}))
	assert.Equal(t, []float64{0.5, 1.5}, p.B(), "update is idempotent")

	assert.ErrorIs(t, p.Update([]float64{0}), domain.ErrShapeMismatch)
	assert.ErrorIs(t, p.SetReference([]float64{0}), domain.ErrValidation)
}

func TestCartesian_Update(t *testing.T) {
	chain, err := model.NewPlanarChain([]float64{1, 1})
	require.NoError(t, err)

	c, err := task.NewCartesian("ee", chain, model.EndEffector, [2]float64{1, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, 1}, c.B(), 1e-12)
	assert.Equal(t, 2, linalg.Rows(c.A()))

	require.NoError(t, c.Update([]float64{0, math.Pi / 2}))
	assert.InDeltaSlice(t, []float64{0, 0}, c.B(), 1e-12)
}

func TestUnregisteredTaskWithConstraints(t *testing.T) {
	p, err := task.NewPostural("postural", []float64{0}, task.WithConstraints(domain.ConstraintHandle(0)))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Update([]float64{0}), domain.ErrUnknownHandle)
}

type fixture struct {
	reg        *registry.Registry
	t1, t2, t3 domain.TaskHandle
	c1, c2, c3 domain.ConstraintHandle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: registry.NewRegistry()}

	f.c1 = f.reg.AddConstraint(constraint.New("c1", 2))
	f.c2 = f.reg.AddConstraint(constraint.New("c2", 2))
	f.c3 = f.reg.AddConstraint(constraint.New("c3", 2))

	p1, err := task.NewPostural("p1", []float64{1, 1}, task.WithConstraints(f.c1, f.c2))
	require.NoError(t, err)
	p2, err := task.NewPostural("p2", []float64{-1, 2}, task.WithConstraints(f.c2, f.c3))
	require.NoError(t, err)
	lin, err := task.NewLinear("lin", mat.NewDense(1, 2, []float64{1, -1}), []float64{0.5})
	require.NoError(t, err)

	f.t1 = f.reg.AddTask(p1)
	f.t2 = f.reg.AddTask(p2)
	f.t3 = f.reg.AddTask(lin)
	return f
}

func TestAggregated_Combines(t *testing.T) {
	f := newFixture(t)
	p1, _ := f.reg.Task(f.t1)
	p2, _ := f.reg.Task(f.t2)
	require.NoError(t, p2.SetLambda(0.5))
	require.NoError(t, p1.Update([]float64{0, 0}))
	require.NoError(t, p2.Update([]float64{0, 0}))

	agg, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, f.t2, f.t3}, 2)
	require.NoError(t, err)

	assert.Equal(t, "p1plusp2pluslin", agg.ID())
	assert.Equal(t, 5, linalg.Rows(agg.A()))
	assert.Equal(t, 2, linalg.Cols(agg.A()))
	assert.Equal(t, []float64{1, 0}, linalg.Row(agg.A(), 0))
	assert.Equal(t, []float64{1, -1}, linalg.Row(agg.A(), 4))
	assert.InDeltaSlice(t, []float64{1, 1, -0.5, 1, 0.5}, agg.B(), 1e-12)
	assert.True(t, mat.Equal(linalg.Identity(5), agg.Weight()))
	assert.Equal(t, 1.0, agg.Lambda())
}

func TestAggregated_WeightIsBlockDiagonal(t *testing.T) {
	f := newFixture(t)
	p1, _ := f.reg.Task(f.t1)
	require.NoError(t, p1.(*task.Postural).SetWeight(mat.NewDense(2, 2, []float64{2, 0, 0, 2})))

	agg, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, f.t3}, 2)
	require.NoError(t, err)
	w := agg.Weight()
	assert.Equal(t, 2.0, w.At(0, 0))
	assert.Equal(t, 2.0, w.At(1, 1))
	assert.Equal(t, 1.0, w.At(2, 2))
	assert.Equal(t, 0.0, w.At(0, 2))
}

func TestAggregated_ConstraintDedup(t *testing.T) {
	f := newFixture(t)
	agg, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, f.t2}, 2)
	require.NoError(t, err)

	assert.Equal(t, []domain.ConstraintHandle{f.c1, f.c2, f.c3}, agg.AggregatedConstraints())
	assert.Len(t, agg.Constraints(), 3, "the shared constraint appears once")
	assert.Empty(t, agg.OwnConstraints())

	own := f.reg.AddConstraint(constraint.New("own", 2))
	agg.AddConstraint(own)
	agg.AddConstraint(f.c3)
	assert.Equal(t, []domain.ConstraintHandle{own, f.c3}, agg.OwnConstraints())
	assert.Equal(t, []domain.ConstraintHandle{own, f.c3, f.c1, f.c2}, agg.Constraints())
}

func TestAggregated_DistinctInstancesAreKept(t *testing.T) {
	reg := registry.NewRegistry()
	a := reg.AddConstraint(constraint.New("same", 1))
	b := reg.AddConstraint(constraint.New("same", 1))
	t1, _ := task.NewPostural("t1", []float64{0}, task.WithConstraints(a))
	t2, _ := task.NewPostural("t2", []float64{0}, task.WithConstraints(b))
	h1, h2 := reg.AddTask(t1), reg.AddTask(t2)

	agg, err := task.NewAggregated(reg, []domain.TaskHandle{h1, h2}, 1)
	require.NoError(t, err)
	assert.Len(t, agg.Constraints(), 2)
}

func TestAggregated_Nested(t *testing.T) {
	f := newFixture(t)
	inner, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, f.t2}, 2)
	require.NoError(t, err)
	hi := f.reg.AddTask(inner)

	outer, err := task.NewAggregated(f.reg, []domain.TaskHandle{hi, f.t3}, 2)
	require.NoError(t, err)
	assert.Equal(t, "p1plusp2pluslin", outer.ID())
	assert.Equal(t, []domain.ConstraintHandle{f.c1, f.c2, f.c3}, outer.Constraints())
	assert.Equal(t, 5, linalg.Rows(outer.A()))
}

func TestAggregated_UpdateAndRecombine(t *testing.T) {
	f := newFixture(t)
	agg, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, f.t2}, 2)
	require.NoError(t, err)

	require.NoError(t, agg.Update([]float64{1, 1}))
	assert.InDeltaSlice(t, []float64{0, 0, -2, 1}, agg.B(), 1e-12)

	p1, _ := f.reg.Task(f.t1)
	require.NoError(t, p1.Update([]float64{0, 0}))
	assert.InDeltaSlice(t, []float64{0, 0, -2, 1}, agg.B(), 1e-12, "sub-task updates need a recombine")

	require.NoError(t, agg.Recombine())
	assert.InDeltaSlice(t, []float64{1, 1, -2, 1}, agg.B(), 1e-12)

	b := linalg.CloneVec(agg.B())
	require.NoError(t, agg.Recombine())
	assert.Equal(t, b, agg.B(), "recombine is idempotent")
}

func TestAggregated_SinglePosturalMatchesPostural(t *testing.T) {
	reg := registry.NewRegistry()
	p, err := task.NewPostural("postural", []float64{0.3, -0.2, 0.1})
	require.NoError(t, err)
	h := reg.AddTask(p)
	agg, err := task.NewAggregated(reg, []domain.TaskHandle{h}, 3)
	require.NoError(t, err)

	q := []float64{0.1, 0.1, 0.1}
	require.NoError(t, agg.Update(q))
	assert.True(t, mat.Equal(p.A(), agg.A()))
	assert.Equal(t, p.B(), agg.B())
	assert.Equal(t, "postural", agg.ID())
}

func TestAggregated_Validation(t *testing.T) {
	f := newFixture(t)
	odd, _ := task.NewPostural("odd", []float64{0, 0, 0})
	ho := f.reg.AddTask(odd)

	_, err := task.NewAggregated(f.reg, []domain.TaskHandle{f.t1, ho}, 2)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = task.NewAggregated(f.reg, []domain.TaskHandle{99}, 2)
	assert.ErrorIs(t, err, domain.ErrUnknownHandle)

	empty, err := task.NewAggregated(f.reg, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, linalg.Rows(empty.A()))
	assert.Empty(t, empty.B())
	assert.Equal(t, "", empty.ID())
}
