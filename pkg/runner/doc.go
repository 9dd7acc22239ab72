/*
Package runner drives a solver on a wall clock.

A Runner owns a simulated state q and ticks the solver at a fixed period,
integrating q <- q + dq after every successful tick. Failed ticks leave the
state untouched so the next period retries from the same point. Ticks that take
longer than the period are counted as overruns and the ticker drops the missed
periods instead of bursting.

# Usage

	r := runner.New(solver, q0,
		runner.WithRate(100),
		runner.WithLogger(logger),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
