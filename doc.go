/*
Package sot is a hierarchical stack-of-tasks velocity solver.

At every control tick it turns a prioritized list of Tasks (weighted linear
least-squares objectives) and Constraints (box bounds, equalities and
double-bounded inequalities) into one command vector. It solves one QP per
priority level, and each level is constrained so that it cannot degrade the
optimum of the levels above it.

# Concept

Tasks and constraints live in a registry arena and are addressed by handle. A
Stack is the ordered list of task handles, index 0 being the most important. A
level holding several tasks of equal priority is an Aggregated task. The Solver
updates every task and constraint at the current state, then runs the cascade
through a warm-started active-set QP backend.

# Key Features

  - Strict priorities: lower levels are pinned to the optimum of higher levels.
  - Shared constraints: a constraint attached to several tasks is enforced once.
  - Warm starts: every level reuses its previous working set (hotstart), then
    its previous primal/dual solution (warmstart), then falls back to a cold start.
  - Diagnostics: every matrix of every tick can be exported to a snapshot store.

# Usage

	reg := registry.NewRegistry()
	limits, _ := constraint.NewJointLimits("joint_limits", qmin, qmax)
	postural, _ := task.NewPostural("postural", qref)
	postural.AddConstraint(reg.AddConstraint(limits))
	_ = postural.SetLambda(0.1)

	solver, err := sot.New(reg, domain.Stack{reg.AddTask(postural)}, len(qref))
	if err != nil {
		log.Fatal(err)
	}

	q := q0
	for i := 0; i < 100; i++ {
		dq, err := solver.Tick(ctx, q)
		if err != nil {
			log.Fatal(err)
		}
		for j := range q {
			q[j] += dq[j]
		}
	}
*/
package sot
