// Package registry is the arena that owns every task and constraint of a stack.
//
// Tasks, aggregations and the stack refer to entries by handle, so a constraint
// shared by several tasks exists once and deduplication compares handles.
package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
)

// Registry stores tasks and constraints and resolves their handles.
// Reads may run concurrently with each other; registration takes the write lock.
type Registry struct {
	mu          sync.RWMutex
	constraints []ports.Constraint
	tasks       []ports.Task
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddConstraint stores c and returns its handle.
// Registering the same instance twice yields two distinct handles.
func (r *Registry) AddConstraint(c ports.Constraint) domain.ConstraintHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constraints = append(r.constraints, c)
	return domain.ConstraintHandle(len(r.constraints) - 1)
}

// AddTask stores t and returns its handle. Tasks implementing
// ports.ConstraintBinder are bound to the registry.
func (r *Registry) AddTask(t ports.Task) domain.TaskHandle {
	if b, ok := t.(ports.ConstraintBinder); ok {
		b.BindConstraints(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return domain.TaskHandle(len(r.tasks) - 1)
}

// Constraint resolves a constraint handle.
func (r *Registry) Constraint(h domain.ConstraintHandle) (ports.Constraint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(r.constraints) {
		return nil, fmt.Errorf("%w: constraint %s", domain.ErrUnknownHandle, h)
	}
	return r.constraints[h], nil
}

// Task resolves a task handle.
func (r *Registry) Task(h domain.TaskHandle) (ports.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(r.tasks) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrUnknownHandle, h)
	}
	return r.tasks[h], nil
}

// TaskByID returns the handle of the first task with the given id.
func (r *Registry) TaskByID(id string) (domain.TaskHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, t := range r.tasks {
		if t.ID() == id {
			return domain.TaskHandle(i), true
		}
	}
	return 0, false
}

// ConstraintByID returns the handle of the first constraint with the given id.
func (r *Registry) ConstraintByID(id string) (domain.ConstraintHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, c := range r.constraints {
		if c.ID() == id {
			return domain.ConstraintHandle(i), true
		}
	}
	return 0, false
}

// Constraints resolves a list of handles, failing on the first unknown one.
func (r *Registry) Constraints(hs []domain.ConstraintHandle) ([]ports.Constraint, error) {
	out := make([]ports.Constraint, 0, len(hs))
	for _, h := range hs {
		c, err := r.Constraint(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Len returns the number of stored tasks and constraints.
func (r *Registry) Len() (tasks, constraints int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks), len(r.constraints)
}
