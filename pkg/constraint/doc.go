/*
Package constraint provides the constraint base type and the constraints shipped
with the solver.

Base stores the optional fields of a constraint (box bounds, equalities and
double-bounded inequalities) and validates their sizes in every setter. The kind
predicates (IsEquality, IsBilateral, ...) are computed from the current sizes.

Concrete constraints embed *Base and override Update:

  - JointLimits: velocity box keeping joint positions inside their limits.
  - VelocityLimits: static velocity box.
  - ConvexHull: keeps the planar center of mass inside the support polygon.
  - CoMVelocity: bounds the planar center of mass velocity.
*/
package constraint
