package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	keywords := []string{"kw1"}
	meta := map[string]any{"name": "MSR 1", "keywords": keywords}
	evt := Event{
		Verb:       " msr.added ",
		ActorID:    " 0xadmin ",
		ObjectType: " msr ",
		ObjectID:   " 0 ",
		MsrID:      " 0 ",
		Channel:    " msr ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "msr.added" || got.ObjectType != "msr" || got.ObjectID != "0" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "0xadmin" || got.MsrID != "0" || got.Channel != "msr" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["name"] = "changed"
	if meta["name"] != "MSR 1" {
		t.Fatalf("expected original metadata untouched: %+v", meta)
	}
	got.Metadata["keywords"].([]string)[0] = "changed"
	if keywords[0] != "kw1" {
		t.Fatalf("expected keyword slices cloned: %+v", keywords)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: "msr.added"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: "role.granted", ObjectType: "role", ObjectID: "MSR_ADMIN_ROLE:0xa"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: "msr.added", ObjectType: "msr", ObjectID: "0"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	noHooks := NewEmitter(Hooks{nil}, Config{Enabled: true})
	if noHooks.Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !enabled.Enabled() || enabled.Channel() != DefaultChannel {
		t.Fatalf("expected enabled emitter on default channel, got %q", enabled.Channel())
	}
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := capture.Snapshot(); len(got) != 1 || got[0].Channel != DefaultChannel {
		t.Fatalf("expected one event on default channel, got %+v", got)
	}
}

func TestEmitterPreservesExplicitChannelAndTimestamp(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "audit"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       "instance.registered",
		ObjectType: "service_instance",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if !capture.Events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestCaptureHookReturnsConfiguredError(t *testing.T) {
	boom := errors.New("sink down")
	capture := &CaptureHook{Err: boom}
	if err := capture.Notify(context.Background(), Event{Verb: "v"}); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if verbs := capture.Verbs(); len(verbs) != 1 || verbs[0] != "v" {
		t.Fatalf("expected event recorded despite error, got %v", verbs)
	}
}
