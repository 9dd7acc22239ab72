/*
Package dsl provides a fluent builder for assembling stacks of tasks in Go code.

It registers tasks and constraints in a registry, aggregates tasks that share a
priority level and hands back a ready solver. This is the code equivalent of a
scenario file and is handy in tests and examples.

Example usage:

	b := dsl.New(2)
	limits := b.Constraint(jointLimits)

	b.Level(reach).Lambda(0.2).Constrain(limits)
	b.Level(posture).Lambda(0.1).Constrain(limits)
	b.Global(b.Constraint(velocityLimits))

	solver, err := b.Solver()
	if err != nil {
		log.Fatal(err)
	}
*/
package dsl
