package msr

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// ErrUnauthorized reports a caller lacking the role or operator
	// relationship an operation requires.
	ErrUnauthorized = errors.ConstError("unauthorized")

	// ErrInvalidArgument reports a malformed or empty required field.
	ErrInvalidArgument = errors.ConstError("invalid argument")

	// ErrInvalidTransition reports a status change outside the forward
	// lifecycle chain.
	ErrInvalidTransition = errors.ConstError("invalid status transition")

	// ErrInvariantViolation reports an operation that would break a registry
	// invariant, such as leaving no admin.
	ErrInvariantViolation = errors.ConstError("invariant violation")

	// ErrConflict reports a lost race on the same record.
	ErrConflict = errors.ConstError("conflict")

	// ErrNotFound reports an unknown record id.
	ErrNotFound = errors.ConstError("not found")
)

// OperationError captures the failed operation and caller alongside the
// originating error.
type OperationError struct {
	Op     string
	Caller Principal
	Target string
	Err    error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("msr: %s caller=%s %s: %v", e.Op, describeCaller(e.Caller), describeTarget(e.Target), e.Err)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeCaller(caller Principal) string {
	if caller == "" {
		return "<anonymous>"
	}
	return string(caller)
}

func describeTarget(target string) string {
	if target == "" {
		return "target=<none>"
	}
	return fmt.Sprintf("target=%q", target)
}

// failf annotates kind with a formatted detail while keeping it matchable
// through errors.Is.
func failf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func wrapOperationError(op string, caller Principal, target string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Op == "" {
			opErr.Op = op
		}
		if opErr.Caller == "" {
			opErr.Caller = caller
		}
		if opErr.Target == "" {
			opErr.Target = target
		}
		return opErr
	}

	return &OperationError{
		Op:     op,
		Caller: caller,
		Target: target,
		Err:    err,
	}
}
