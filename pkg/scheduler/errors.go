package scheduler

import "fmt"

// InvariantViolation is returned by Run when the scheduler detects a
// condition spec.md §4.1 declares fatal: a wake-up for a process the
// scheduler never spawned, a double-trigger of a non-latched event, or
// a negative-time delay passed to Schedule/Timeout.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("scheduler: invariant violation: %s", e.Reason)
}

func violation(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Reason: fmt.Sprintf(format, args...)}
}
