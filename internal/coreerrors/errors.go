// Package coreerrors defines the discriminated error-kind taxonomy shared by the
// planning and persistence core, generalizing the flat sentinel-error style used
// throughout the teacher's internal/memory package into a single wrapped type
// callers can switch on with errors.As.
package coreerrors

import (
	"errors"
	"fmt"
)

// Kind is a semantic error classification, never a concrete Go type.
type Kind string

const (
	KindInvalidInput               Kind = "invalid_input"
	KindUnreachableGoal             Kind = "unreachable_goal"
	KindBudgetExceeded               Kind = "budget_exceeded"
	KindTimeout                       Kind = "timeout"
	KindCancelled                     Kind = "cancelled"
	KindNoApplicableAction           Kind = "no_applicable_action"
	KindPreconditionUnmetAtExecution Kind = "precondition_unmet_at_execution"
	KindRemoteUnavailable             Kind = "remote_unavailable"
	KindConflict                      Kind = "conflict"
	KindDuplicate                     Kind = "duplicate"
	KindExhaustedRetries              Kind = "exhausted_retries"
	KindCorruptState                  Kind = "corrupt_state"
	KindNotFound                     Kind = "not_found"
)

// Error is the single typed-failure shape used across the core. It carries a
// semantic Kind, the operation that failed, and the wrapped underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed failure for the given operation and kind.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a *Error of the given kind, for use with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
