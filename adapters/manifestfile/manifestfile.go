// Package manifestfile stores cache manifests as YAML files inside the
// cache directory of each kind.
package manifestfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/ports"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the manifest file written in each cache directory.
const DefaultFilename = "manifest.yaml"

// formatVersion guards against reading manifests written by an incompatible
// layout.
const formatVersion = 2

type document struct {
	Version  int            `yaml:"version"`
	Manifest cache.Manifest `yaml:"manifest"`
}

// Store implements ports.CacheStore on a ports.FileSystem.
type Store struct {
	scope    ports.FileSystem
	filename string
}

// New creates a store writing filename inside scope.
func New(scope ports.FileSystem, filename string) *Store {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Store{scope: scope, filename: filename}
}

// Opener returns a ports.CacheStoreOpener writing filename in each scope.
func Opener(filename string) ports.CacheStoreOpener {
	return func(scope ports.FileSystem) (ports.CacheStore, error) {
		return New(scope, filename), nil
	}
}

// Load reads the manifest file. A missing file means nothing is stored.
func (s *Store) Load(ctx context.Context) (cache.Manifest, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.Manifest{}, false, err
	}

	data, err := s.scope.ReadFile(s.filename)
	if errors.Is(err, fs.ErrNotExist) {
		return cache.Manifest{}, false, nil
	}
	if err != nil {
		return cache.Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cache.Manifest{}, false, fmt.Errorf("parse manifest: %w", err)
	}
	if doc.Version != formatVersion {
		return cache.Manifest{}, false, fmt.Errorf("manifest format version %d, want %d", doc.Version, formatVersion)
	}
	return doc.Manifest, true, nil
}

// Save writes the manifest file.
func (s *Store) Save(ctx context.Context, m cache.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := yaml.Marshal(document{Version: formatVersion, Manifest: m})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.scope.WriteFile(s.filename, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Clear removes the manifest file.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.scope.Remove(s.filename)
}

// Close is a no-op; the store holds no open resources.
func (s *Store) Close() error {
	return nil
}

var _ ports.CacheStore = (*Store)(nil)
