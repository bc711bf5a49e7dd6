package msr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

const (
	deployer  Principal = "0xDEPLOYER"
	admin     Principal = "0xADMIN"
	operatorA Principal = "0xA"
	operatorB Principal = "0xB"
	stranger  Principal = "0xSTRANGER"
)

// newTestRegistry returns a registry with admin holding RoleAdmin and one MSR
// operated by operatorA.
func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	reg := New(append([]Option{WithAdmin(admin)}, opts...)...)
	if _, err := reg.AddMsr(context.Background(), admin, "MSR A", "https://a.example", operatorA); err != nil {
		t.Fatalf("add msr: %v", err)
	}
	return reg
}

func registerInstance(t *testing.T, reg *Registry, caller Principal, mrn string) uint64 {
	t.Helper()
	id, err := reg.RegisterServiceInstance(context.Background(), caller, ServiceInstanceInput{
		Name:    "svc",
		MRN:     mrn,
		Version: "1.0",
	}, []string{"kw1"})
	if err != nil {
		t.Fatalf("register instance %s: %v", mrn, err)
	}
	return id
}

func expectKind(t *testing.T, err error, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestBootstrapScenario(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	reg := New(WithBootstrapAdmin(deployer), WithActivityHooks(activity.Hooks{capture}))

	if err := reg.GrantRole(ctx, deployer, RoleAdmin, admin); err != nil {
		t.Fatalf("bootstrap grant: %v", err)
	}
	msrID, err := reg.AddMsr(ctx, admin, "MSR A", "https://a.example", operatorA)
	if err != nil || msrID != 0 {
		t.Fatalf("expected msr id 0, got %d err=%v", msrID, err)
	}

	specID, owner, err := reg.RegisterServiceSpecification(ctx, operatorA, "svc", "0.1", []string{"kw1"})
	if err != nil || specID != 0 || owner != msrID {
		t.Fatalf("unexpected specification result id=%d msr=%d err=%v", specID, owner, err)
	}

	instanceID, err := reg.RegisterServiceInstance(ctx, operatorA, ServiceInstanceInput{
		Name:                "svc-1",
		MRN:                 "urn:mrn:svc-1",
		Version:             "0.1",
		ImplementsDesignMRN: "urn:mrn:design:unknown",
	}, []string{"kw1"})
	if err != nil || instanceID != 0 {
		t.Fatalf("expected instance id 0, got %d err=%v", instanceID, err)
	}

	for _, next := range []Status{StatusReleased, StatusDeprecated, StatusWithdrawn} {
		if err := reg.UpdateStatus(ctx, operatorA, instanceID, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	instance, _ := reg.GetServiceInstance(instanceID)
	if instance.Status != StatusWithdrawn {
		t.Fatalf("expected withdrawn, got %s", instance.Status)
	}

	want := []string{
		activity.VerbRoleGranted,
		activity.VerbMsrAdded,
		activity.VerbSpecificationRegistered,
		activity.VerbInstanceRegistered,
		activity.VerbInstanceStatusUpdated,
		activity.VerbInstanceStatusUpdated,
		activity.VerbInstanceStatusUpdated,
	}
	got := capture.Verbs()
	if len(got) != len(want) {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("verb %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNonOperatorCannotRegister(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, _, err := reg.RegisterServiceSpecification(ctx, operatorB, "svc", "0.1", []string{"kw1"})
	expectKind(t, err, ErrUnauthorized)
	if specs := reg.GetServiceSpecifications(); len(specs) != 0 {
		t.Fatalf("expected no specifications, got %+v", specs)
	}

	_, err = reg.RegisterServiceInstance(ctx, operatorB, ServiceInstanceInput{Name: "svc", MRN: "urn:mrn:x", Version: "1"}, nil)
	expectKind(t, err, ErrUnauthorized)
	if instances := reg.GetServiceInstances(); len(instances) != 0 {
		t.Fatalf("expected no instances, got %+v", instances)
	}
}

func TestHookFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	var logged []OperationLogEvent
	failing := &activity.CaptureHook{Err: errors.New("sink down")}
	reg := newTestRegistry(t,
		WithActivityHooks(activity.Hooks{failing}),
		WithLogger(LoggerFunc(func(e OperationLogEvent) { logged = append(logged, e) })),
	)

	id, err := reg.RegisterServiceInstance(ctx, operatorA, ServiceInstanceInput{Name: "svc", MRN: "urn:mrn:x", Version: "1"}, nil)
	if err != nil {
		t.Fatalf("expected mutation to succeed despite hook error, got %v", err)
	}
	if _, ok := reg.GetServiceInstance(id); !ok {
		t.Fatalf("expected instance committed")
	}

	var sawHookFailure bool
	for _, event := range logged {
		if event.Op == "activity:"+activity.VerbInstanceRegistered && event.Err != nil {
			sawHookFailure = true
		}
	}
	if !sawHookFailure {
		t.Fatalf("expected hook failure to be logged, got %+v", logged)
	}
}

func TestActivityChannelAndClock(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	fixed := mustTime(t, "2024-05-01T10:00:00Z")
	reg := New(
		WithAdmin(admin),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityChannel("registry-audit"),
		WithClock(func() time.Time { return fixed }),
	)
	if _, err := reg.AddMsr(ctx, admin, "MSR A", "", operatorA); err != nil {
		t.Fatalf("add msr: %v", err)
	}
	events := capture.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != "registry-audit" || !events[0].OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected event envelope %+v", events[0])
	}
	if events[0].MsrID != "0" || events[0].ActorID != string(admin) {
		t.Fatalf("unexpected event identity %+v", events[0])
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return parsed
}
