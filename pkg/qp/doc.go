/*
Package qp implements the dense active-set QP backend used by every priority level.

A Problem solves

	min  1/2 xᵀHx + gᵀx
	s.t. lA <= A x <= uA
	     l  <=   x <= u

with a primal-dual active-set method (Goldfarb and Idnani). Double sided rows are
split into two one sided rows, rows with lA == uA are equalities, and values at or
beyond ±Infty count as absent. The number of working set changes per solve is
bounded by NWSR.

A Problem keeps the primal and dual solution of its last successful solve and uses
them to warm start the next one. Solve tries an ordered list of tiers:

  - hotstart: the previous working set is checked directly, then used as the
    preferred order for the active-set iterations.
  - warmstart: the working set is reseeded from the previous primal and dual
    solution (constraints with nonzero multipliers or violated at the previous x).
  - cold: plain active-set iterations from the unconstrained minimum.

The first tier that succeeds wins. When all fail the problem is marked Stale and
the next Solve goes straight to the cold tier.
*/
package qp
