package msr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapOperationErrorCreatesMetadata(t *testing.T) {
	base := failf(ErrUnauthorized, "nope")
	err := wrapOperationError("AddMsr", stranger, "MSR A", base)

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Op != "AddMsr" || opErr.Caller != stranger || opErr.Target != "MSR A" {
		t.Fatalf("unexpected metadata %+v", opErr)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected sentinel reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), `msr: AddMsr caller=0xSTRANGER target="MSR A": unauthorized: nope`) {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapOperationErrorAugmentsExisting(t *testing.T) {
	existing := &OperationError{Op: "Inner", Err: ErrConflict}
	err := wrapOperationError("Outer", admin, "7", existing)
	if err != existing {
		t.Fatalf("expected existing error reused")
	}
	if existing.Op != "Inner" || existing.Caller != admin || existing.Target != "7" {
		t.Fatalf("expected blanks filled only, got %+v", existing)
	}
	if wrapOperationError("Op", admin, "", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestOperationErrorDescribesAnonymousCaller(t *testing.T) {
	err := &OperationError{Op: "GrantRole", Err: ErrUnauthorized}
	if got := err.Error(); got != "msr: GrantRole caller=<anonymous> target=<none>: unauthorized" {
		t.Fatalf("unexpected message %q", got)
	}
	var nilErr *OperationError
	if nilErr.Error() != "<nil>" || nilErr.Unwrap() != nil {
		t.Fatalf("expected nil receiver to be safe")
	}
}

func TestRegistryErrorsCarryOperation(t *testing.T) {
	reg := New(WithAdmin(admin))
	_, err := reg.AddMsr(context.Background(), stranger, "MSR", "", operatorA)

	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "AddMsr" || opErr.Caller != stranger {
		t.Fatalf("expected AddMsr operation error, got %v", err)
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected a single error kind")
	}
}
