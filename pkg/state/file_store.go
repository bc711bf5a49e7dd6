package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	msr "github.com/goliatone/go-msr"
)

// Codec serializes stored snapshot files.
type Codec interface {
	Extension() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec writes indented JSON.
type JSONCodec struct{}

func (JSONCodec) Extension() string { return ".json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// YAMLCodec writes YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Extension() string { return ".yaml" }

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

type fileEnvelope struct {
	Meta     Meta         `json:"meta" yaml:"meta"`
	Snapshot msr.Snapshot `json:"snapshot" yaml:"snapshot"`
}

// FileStore keeps one file per Ref under a root directory. Saves write a
// temporary file and rename it into place, so readers see either the old or
// the new snapshot.
type FileStore struct {
	root  string
	codec Codec
	mu    sync.RWMutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithCodec selects the file format. The default is YAMLCodec.
func WithCodec(codec Codec) FileStoreOption {
	return func(s *FileStore) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// NewFileStore stores snapshots below root.
func NewFileStore(root string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{root: root, codec: YAMLCodec{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FileStore) path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+s.codec.Extension()), nil
}

func (s *FileStore) Load(_ context.Context, ref Ref) (msr.Snapshot, Meta, bool, error) {
	path, err := s.path(ref)
	if err != nil {
		return msr.Snapshot{}, Meta{}, false, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if os.IsNotExist(err) {
		return msr.Snapshot{}, Meta{}, false, nil
	}
	if err != nil {
		return msr.Snapshot{}, Meta{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}

	var envelope fileEnvelope
	if err := s.codec.Unmarshal(data, &envelope); err != nil {
		return msr.Snapshot{}, Meta{}, false, fmt.Errorf("state: decode %s: %w", path, err)
	}
	return envelope.Snapshot, envelope.Meta, true, nil
}

func (s *FileStore) Save(_ context.Context, ref Ref, snapshot msr.Snapshot, meta Meta) (Meta, error) {
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}
	data, err := s.codec.Marshal(fileEnvelope{Meta: meta, Snapshot: snapshot})
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(path, data); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", path, err)
	}
	return cloneMeta(meta), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
