/*
Package ports defines the interfaces the solver core depends on.

These interfaces decouple the cascade from concrete tasks, constraints, robot
models and diagnostic backends, allowing the same engine to run against any
kinematic model and any snapshot storage.

# Key Interfaces

  - Constraint: Box bounds, equalities and double-bounded inequalities on the command.
  - Task: A weighted linear least-squares objective with its attached constraints.
  - ModelProvider: Kinematic quantities (Jacobians, poses, limits) at the current state.
  - DiagnosticSink: Receives named matrices and vectors once per tick.
  - SnapshotStore: Persists and retrieves the per-tick diagnostic snapshots.
*/
package ports
