package config

import (
	"fmt"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/internal/linalg"
	"github.com/aretw0/sot/pkg/constraint"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/model"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/aretw0/sot/pkg/qp"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"gonum.org/v1/gonum/mat"
)

// Built is a scenario turned into live objects.
type Built struct {
	Registry *registry.Registry
	Stack    domain.Stack
	Model    ports.ModelProvider
	Q0       []float64
	Global   []domain.ConstraintHandle
	// Options carries the policy and backend tunables of the scenario.
	Options []sot.Option
}

// NewSolver creates the solver of the scenario. extra options are applied last.
func (b *Built) NewSolver(name string, extra ...sot.Option) (*sot.Solver, error) {
	opts := append([]sot.Option{sot.WithName(name)}, b.Options...)
	opts = append(opts, extra...)
	return sot.New(b.Registry, b.Stack, len(b.Q0), opts...)
}

// Build registers every constraint and task of the scenario and assembles the stack.
// A stack level naming several tasks becomes an aggregated task.
func (sc *Scenario) Build() (*Built, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	b := &Built{Registry: registry.NewRegistry()}

	b.Q0 = linalg.CloneVec(sc.Q0)
	if len(b.Q0) == 0 {
		b.Q0 = make([]float64, sc.XSize)
	}

	if sc.Model != nil {
		m, err := buildModel(sc.Model)
		if err != nil {
			return nil, err
		}
		if m.DoF() != sc.XSize {
			return nil, fmt.Errorf("%w: model has %d joints, x_size is %d", domain.ErrValidation, m.DoF(), sc.XSize)
		}
		if err := m.SetState(b.Q0); err != nil {
			return nil, err
		}
		b.Model = m
	}

	constraints := make(map[string]domain.ConstraintHandle, len(sc.Constraints))
	for _, cc := range sc.Constraints {
		c, err := buildConstraint(cc, sc.XSize, b.Model)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", cc.ID, err)
		}
		constraints[cc.ID] = b.Registry.AddConstraint(c)
	}

	tasks := make(map[string]domain.TaskHandle, len(sc.Tasks))
	for _, tc := range sc.Tasks {
		var opts []task.Option
		for _, ref := range tc.Constraints {
			opts = append(opts, task.WithConstraints(constraints[ref]))
		}
		t, err := buildTask(tc, sc.XSize, b.Model, opts)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", tc.ID, err)
		}
		tasks[tc.ID] = b.Registry.AddTask(t)
	}

	for k, lvl := range sc.Stack {
		if len(lvl) == 1 {
			b.Stack = append(b.Stack, tasks[lvl[0]])
			continue
		}
		subs := make([]domain.TaskHandle, len(lvl))
		for i, id := range lvl {
			subs[i] = tasks[id]
		}
		agg, err := task.NewAggregated(b.Registry, subs, sc.XSize)
		if err != nil {
			return nil, fmt.Errorf("stack level %d: %w", k, err)
		}
		b.Stack = append(b.Stack, b.Registry.AddTask(agg))
	}

	for _, ref := range sc.GlobalConstraints {
		b.Global = append(b.Global, constraints[ref])
	}
	if len(b.Global) > 0 {
		b.Options = append(b.Options, sot.WithGlobalConstraints(b.Global...))
	}

	solverOpts, err := sc.Solver.options()
	if err != nil {
		return nil, err
	}
	b.Options = append(b.Options, solverOpts...)
	return b, nil
}

func (s SolverConfig) options() ([]sot.Option, error) {
	policy, err := sot.ParsePriorityPolicy(s.Policy, s.BandEps)
	if err != nil {
		return nil, err
	}
	hessian, err := qp.ParseHessianType(s.HessianType)
	if err != nil {
		return nil, err
	}
	if s.HessianType == "" {
		hessian = qp.DefaultOptions().HessianType
	}

	qpOpts := []qp.Option{qp.WithHessianType(hessian)}
	if s.NWSR < 0 {
		return nil, fmt.Errorf("%w: nwsr %d is negative", domain.ErrValidation, s.NWSR)
	}
	if s.NWSR > 0 {
		qpOpts = append(qpOpts, qp.WithNWSR(s.NWSR))
	}
	if s.EpsRegularisation > 0 {
		qpOpts = append(qpOpts, qp.WithEpsRegularisation(s.EpsRegularisation))
	}
	if s.Infinity > 0 {
		qpOpts = append(qpOpts, qp.WithInfinity(s.Infinity))
	}
	return []sot.Option{sot.WithPriorityPolicy(policy), sot.WithQPOptions(qpOpts...)}, nil
}

func buildModel(mc *ModelConfig) (*model.PlanarChain, error) {
	switch mc.Type {
	case "", "planar":
		var opts []model.Option
		if len(mc.Masses) > 0 {
			opts = append(opts, model.WithMasses(mc.Masses...))
		}
		if len(mc.QMin) > 0 || len(mc.QMax) > 0 {
			opts = append(opts, model.WithJointLimits(mc.QMin, mc.QMax))
		}
		return model.NewPlanarChain(mc.Lengths, opts...)
	}
	return nil, fmt.Errorf("%w: unknown model type %q", domain.ErrValidation, mc.Type)
}

func requireModel(m ports.ModelProvider, kind string) error {
	if m == nil {
		return fmt.Errorf("%w: %s needs a model", domain.ErrValidation, kind)
	}
	return nil
}

func buildConstraint(cc ConstraintConfig, xSize int, m ports.ModelProvider) (ports.Constraint, error) {
	switch cc.Type {
	case "joint_limits":
		var p jointLimitsParams
		if err := decodeParams(cc.ID, cc.Params, &p); err != nil {
			return nil, err
		}
		if len(p.QMin) == 0 && len(p.QMax) == 0 {
			if err := requireModel(m, "joint_limits without qmin/qmax"); err != nil {
				return nil, err
			}
			p.QMin, p.QMax = m.JointLimits()
		}
		var opts []constraint.LimitsOption
		if p.BoundScaling > 0 {
			opts = append(opts, constraint.WithBoundScaling(p.BoundScaling))
		}
		return constraint.NewJointLimits(cc.ID, p.QMin, p.QMax, opts...)

	case "velocity_limits":
		var p velocityLimitsParams
		if err := decodeParams(cc.ID, cc.Params, &p); err != nil {
			return nil, err
		}
		return constraint.NewVelocityLimits(cc.ID, p.DQMax, p.DT, xSize)

	case "convex_hull":
		if err := requireModel(m, "convex_hull"); err != nil {
			return nil, err
		}
		var p convexHullParams
		if err := decodeParams(cc.ID, cc.Params, &p); err != nil {
			return nil, err
		}
		support := make([]constraint.Point, len(p.Support))
		for i, s := range p.Support {
			support[i] = constraint.Point(s)
		}
		return constraint.NewConvexHull(cc.ID, m, support, p.Margin)

	case "com_velocity":
		if err := requireModel(m, "com_velocity"); err != nil {
			return nil, err
		}
		var p comVelocityParams
		if err := decodeParams(cc.ID, cc.Params, &p); err != nil {
			return nil, err
		}
		return constraint.NewCoMVelocity(cc.ID, m, p.VMax, p.DT)

	case "linear":
		var p linearConstraintParams
		if err := decodeParams(cc.ID, cc.Params, &p); err != nil {
			return nil, err
		}
		c := constraint.New(cc.ID, xSize)
		if err := c.SetBounds(p.LowerBound, p.UpperBound); err != nil {
			return nil, err
		}
		aeq, err := linalg.FromRows(p.Aeq)
		if err != nil {
			return nil, err
		}
		if err := c.SetEquality(aeq, p.Beq); err != nil {
			return nil, err
		}
		aineq, err := linalg.FromRows(p.Aineq)
		if err != nil {
			return nil, err
		}
		if err := c.SetInequality(aineq, p.BLower, p.BUpper); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown constraint type %q", domain.ErrValidation, cc.Type)
}

// configurable is what every concrete task shares through task.Base.
type configurable interface {
	ports.Task
	SetWeight(w *mat.Dense) error
}

func buildTask(tc TaskConfig, xSize int, m ports.ModelProvider, opts []task.Option) (ports.Task, error) {
	var t configurable
	switch tc.Type {
	case "postural":
		var p posturalParams
		if err := decodeParams(tc.ID, tc.Params, &p); err != nil {
			return nil, err
		}
		if len(p.Reference) == 0 {
			p.Reference = make([]float64, xSize)
		}
		pt, err := task.NewPostural(tc.ID, p.Reference, opts...)
		if err != nil {
			return nil, err
		}
		t = pt

	case "cartesian":
		if err := requireModel(m, "cartesian"); err != nil {
			return nil, err
		}
		p := cartesianParams{Frame: "ee"}
		if err := decodeParams(tc.ID, tc.Params, &p); err != nil {
			return nil, err
		}
		ct, err := task.NewCartesian(tc.ID, m, p.Frame, p.Reference, opts...)
		if err != nil {
			return nil, err
		}
		t = ct

	case "linear":
		var p linearTaskParams
		if err := decodeParams(tc.ID, tc.Params, &p); err != nil {
			return nil, err
		}
		a, err := linalg.FromRows(p.A)
		if err != nil {
			return nil, err
		}
		lt, err := task.NewLinear(tc.ID, a, p.B, opts...)
		if err != nil {
			return nil, err
		}
		t = lt

	default:
		return nil, fmt.Errorf("%w: unknown task type %q", domain.ErrValidation, tc.Type)
	}

	if t.XSize() != xSize {
		return nil, fmt.Errorf("%w: task has %d variables, x_size is %d", domain.ErrValidation, t.XSize(), xSize)
	}
	if tc.Lambda != nil {
		if err := t.SetLambda(*tc.Lambda); err != nil {
			return nil, err
		}
	}
	if len(tc.Weight) > 0 {
		w, err := linalg.FromRows(tc.Weight)
		if err != nil {
			return nil, err
		}
		if err := t.SetWeight(w); err != nil {
			return nil, err
		}
	}
	return t, nil
}
