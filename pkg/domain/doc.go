/*
Package domain contains the core types shared by the stack-of-tasks solver.

It defines the handles used to address tasks and constraints in the arena, the
priority Stack, diagnostic Snapshots, lifecycle events and the sentinel errors
returned across package boundaries. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - ConstraintHandle / TaskHandle: Stable indices into the registry arena.
  - Stack: Ordered task handles, index 0 being the highest priority.
  - Snapshot: The per-tick diagnostic export (matrices and vectors by name).
  - LifecycleHooks: Callbacks fired around ticks, levels and solve attempts.
*/
package domain
