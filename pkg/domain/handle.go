package domain

import "fmt"

// ConstraintHandle addresses a constraint stored in the registry arena.
// Two handles are equal only when they address the same instance.
type ConstraintHandle int

// TaskHandle addresses a task stored in the registry arena.
type TaskHandle int

func (h ConstraintHandle) String() string { return fmt.Sprintf("c#%d", int(h)) }

func (h TaskHandle) String() string { return fmt.Sprintf("t#%d", int(h)) }

// Stack is the ordered list of priority levels. Index 0 is the highest priority.
type Stack []TaskHandle

// Validate checks that the stack is non-empty and holds no task twice.
func (s Stack) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty stack", ErrValidation)
	}
	seen := make(map[TaskHandle]int, len(s))
	for i, h := range s {
		if prev, ok := seen[h]; ok {
			return fmt.Errorf("%w: task %s appears at levels %d and %d", ErrValidation, h, prev, i)
		}
		seen[h] = i
	}
	return nil
}

// DedupConstraints returns the handles in first-seen order with repeats removed.
func DedupConstraints(lists ...[]ConstraintHandle) []ConstraintHandle {
	var out []ConstraintHandle
	seen := make(map[ConstraintHandle]struct{})
	for _, l := range lists {
		for _, h := range l {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}
