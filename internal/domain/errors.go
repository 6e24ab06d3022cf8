package domain

import "fmt"

// ValidationError rejects a single offending operation (bad amounts,
// out-of-range parameters). The caller may continue with other work.
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func Validationf(op, format string, args ...any) error {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvariantViolation marks an internal consistency failure: a conservation or
// status/amount check that can only fail because of an algorithm bug, never
// because of bad input. It is raised with panic and must not be recovered into
// a normal error path.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Msg
}

func invariantf(format string, args ...any) {
	panic(&InvariantViolation{Msg: fmt.Sprintf(format, args...)})
}
