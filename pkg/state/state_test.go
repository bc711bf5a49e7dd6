package state_test

import (
	"context"
	"errors"
	"testing"

	msr "github.com/goliatone/go-msr"
	"github.com/goliatone/go-msr/pkg/state"
)

const (
	admin    msr.Principal = "0xADMIN"
	operator msr.Principal = "0xOPERATOR"
)

func seededRegistry(t *testing.T) *msr.Registry {
	t.Helper()
	ctx := context.Background()
	reg := msr.New(msr.WithAdmin(admin))
	if _, err := reg.AddMsr(ctx, admin, "Operator A", "https://a.example", operator); err != nil {
		t.Fatalf("add msr: %v", err)
	}
	if _, _, err := reg.RegisterServiceSpecification(ctx, operator, "svc", "1.0.0", []string{"kw2", "kw1"}); err != nil {
		t.Fatalf("register specification: %v", err)
	}
	id, err := reg.RegisterServiceInstance(ctx, operator, msr.ServiceInstanceInput{
		Name:    "svc-1",
		MRN:     "urn:mrn:mcp:service:a:svc-1",
		Version: "1.0.0",
	}, []string{"kw1", "kw1"})
	if err != nil {
		t.Fatalf("register instance: %v", err)
	}
	if err := reg.UpdateStatus(ctx, operator, id, msr.StatusReleased); err != nil {
		t.Fatalf("update status: %v", err)
	}
	return reg
}

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     state.Ref
		want    string
		wantErr bool
	}{
		{name: "plain", ref: state.Ref{Name: "primary"}, want: "registry/primary"},
		{name: "trimmed", ref: state.Ref{Name: "  primary "}, want: "registry/primary"},
		{name: "empty", ref: state.Ref{}, wantErr: true},
		{name: "slash", ref: state.Ref{Name: "a/b"}, wantErr: true},
		{name: "backslash", ref: state.Ref{Name: `a\b`}, wantErr: true},
		{name: "dotdot", ref: state.Ref{Name: ".."}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if !errors.Is(err, state.ErrInvalidRef) {
					t.Fatalf("expected ErrInvalidRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryStoreIsolatesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Name: "primary"}

	snapshot := seededRegistry(t).Snapshot()
	if _, err := store.Save(ctx, ref, snapshot, state.Meta{Extra: map[string]string{"k": "v"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snapshot.Instances[0].Keywords[0] = "mutated"

	loaded, meta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Instances[0].Keywords[0] != "kw1" {
		t.Fatalf("expected stored snapshot isolated, got %v", loaded.Instances[0].Keywords)
	}
	meta.Extra["k"] = "changed"
	_, again, _, _ := store.Load(ctx, ref)
	if again.Extra["k"] != "v" {
		t.Fatalf("expected stored meta isolated, got %v", again.Extra)
	}

	if _, _, ok, err := store.Load(ctx, state.Ref{Name: "missing"}); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestCheckpointAndRestoreAcrossStores(t *testing.T) {
	stores := map[string]func(t *testing.T) state.Store{
		"memory": func(*testing.T) state.Store { return state.NewMemoryStore() },
		"yaml": func(t *testing.T) state.Store {
			return state.NewFileStore(t.TempDir())
		},
		"json": func(t *testing.T) state.Store {
			return state.NewFileStore(t.TempDir(), state.WithCodec(state.JSONCodec{}))
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)
			ref := state.Ref{Name: "primary"}
			original := seededRegistry(t)

			meta, err := state.Checkpoint(ctx, store, ref, original, state.Meta{})
			if err != nil {
				t.Fatalf("checkpoint: %v", err)
			}
			if meta.SnapshotID == "" || meta.ETag == "" || meta.UpdatedAt.IsZero() {
				t.Fatalf("expected populated meta, got %+v", meta)
			}

			restored, loadedMeta, err := state.Restore(ctx, store, ref)
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if loadedMeta.ETag != meta.ETag {
				t.Fatalf("expected etag %q, got %q", meta.ETag, loadedMeta.ETag)
			}

			want := original.Snapshot()
			got := restored.Snapshot()
			if len(got.Msrs) != 1 || got.Msrs[0] != want.Msrs[0] {
				t.Fatalf("msr mismatch: want %+v got %+v", want.Msrs, got.Msrs)
			}
			if len(got.Specifications) != 1 || got.Specifications[0].Keywords[0] != "kw1" {
				t.Fatalf("specification mismatch: %+v", got.Specifications)
			}
			instance := got.Instances[0]
			if instance.Status != msr.StatusReleased || len(instance.Keywords) != 2 || instance.MsrName != "Operator A" {
				t.Fatalf("instance mismatch: %+v", instance)
			}
			for ns, value := range want.Sequences {
				if got.Sequences[ns] != value {
					t.Fatalf("sequence %s: want %d got %d", ns, value, got.Sequences[ns])
				}
			}
			if !restored.HasRole(msr.RoleAdmin, admin) {
				t.Fatalf("expected admin role restored")
			}

			id, err := restored.RegisterServiceInstance(ctx, operator, msr.ServiceInstanceInput{
				Name: "svc-2", MRN: "urn:mrn:mcp:service:a:svc-2", Version: "1.0.0",
			}, nil)
			if err != nil || id != 1 {
				t.Fatalf("expected next instance id 1, got %d err=%v", id, err)
			}
		})
	}
}

func TestCheckpointRejectsStaleETag(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Name: "primary"}
	reg := seededRegistry(t)

	first, err := state.Checkpoint(ctx, store, ref, reg, state.Meta{})
	if err != nil {
		t.Fatalf("first checkpoint: %v", err)
	}
	second, err := state.Checkpoint(ctx, store, ref, reg, state.Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("second checkpoint: %v", err)
	}
	if second.ETag == first.ETag || second.SnapshotID == first.SnapshotID {
		t.Fatalf("expected fresh identifiers, got %+v then %+v", first, second)
	}

	_, err = state.Checkpoint(ctx, store, ref, reg, state.Meta{ETag: first.ETag})
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	_, _, err := state.Restore(context.Background(), state.NewMemoryStore(), state.Ref{Name: "nothing"})
	if !errors.Is(err, state.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}
