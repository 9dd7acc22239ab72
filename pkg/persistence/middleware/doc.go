// Package middleware wraps a ports.SnapshotStore to reshape snapshots before
// they are persisted.
package middleware
