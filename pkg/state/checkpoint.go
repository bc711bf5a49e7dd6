package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	msr "github.com/goliatone/go-msr"
)

// Snapshotter is anything that can export a registry snapshot.
type Snapshotter interface {
	Snapshot() msr.Snapshot
}

// Checkpoint exports reg and saves it under ref. When meta.ETag is set and a
// stored snapshot carries a different ETag the save is refused with
// ErrETagMismatch. Every successful checkpoint gets a fresh SnapshotID and
// ETag; meta.Extra is carried over.
func Checkpoint(ctx context.Context, store Store, ref Ref, reg Snapshotter, meta Meta) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if reg == nil {
		return Meta{}, fmt.Errorf("state: registry is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	_, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	snapshot := reg.Snapshot()
	saveMeta := mergeMeta(loadedMeta, Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  time.Now().UTC(),
		Extra:      meta.Extra,
	})
	saved, err := store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q: %w", ref.Name, err)
	}
	return saved, nil
}

// Restore loads the snapshot stored under ref and rebuilds a registry from
// it. opts configure the new registry the same way they configure msr.New.
func Restore(ctx context.Context, store Store, ref Ref, opts ...msr.Option) (*msr.Registry, Meta, error) {
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	snapshot, meta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	if !ok {
		return nil, Meta{}, fmt.Errorf("%w: %q", ErrSnapshotNotFound, ref.Name)
	}
	reg, err := msr.Restore(snapshot, opts...)
	if err != nil {
		return nil, meta, fmt.Errorf("state: restore %q: %w", ref.Name, err)
	}
	return reg, meta, nil
}
