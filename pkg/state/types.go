package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"

	msr "github.com/goliatone/go-msr"
)

const (
	// ErrETagMismatch reports a checkpoint racing another writer.
	ErrETagMismatch = errors.ConstError("state: etag mismatch")

	// ErrInvalidRef reports a Ref that cannot be turned into a storage key.
	ErrInvalidRef = errors.ConstError("state: invalid ref")

	// ErrSnapshotNotFound reports a Restore from a Ref with nothing stored.
	ErrSnapshotNotFound = errors.ConstError("state: snapshot not found")
)

// Ref identifies one persisted registry snapshot.
type Ref struct {
	Name string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot msr.Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot msr.Snapshot, meta Meta) (Meta, error)
}

// Identifier returns the deterministic storage key for r.
func (r Ref) Identifier() (string, error) {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: name is required", ErrInvalidRef)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: name %q must not contain path separators", ErrInvalidRef, name)
	case name == "." || name == "..":
		return "", fmt.Errorf("%w: name %q is reserved", ErrInvalidRef, name)
	}
	return "registry/" + name, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
