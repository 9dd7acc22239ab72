/*
Package observability provides tools for monitoring and introspecting the solver.

It includes Prometheus metrics and structured logging wired through the solver
lifecycle hooks, and a Recorder that collects the matrices of every tick into
snapshots persisted by any ports.SnapshotStore.
*/
package observability
