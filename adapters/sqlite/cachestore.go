package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
)

// DefaultFilename is the database file created in each cache directory.
const DefaultFilename = "manifest.db"

// CacheStore implements ports.CacheStore with SQLite.
type CacheStore struct {
	db    *DB
	owned bool
}

// NewCacheStore creates a cache store on an open, migrated database. Closing
// the store leaves the database open.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// Opener returns a ports.CacheStoreOpener that keeps one database file named
// filename in each cache directory. The scope must be backed by the local
// disk.
func Opener(filename string) ports.CacheStoreOpener {
	if filename == "" {
		filename = DefaultFilename
	}
	return func(scope ports.FileSystem) (ports.CacheStore, error) {
		db, err := Open(filepath.Join(scope.Path(), filename))
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate cache database: %w", err)
		}
		return &CacheStore{db: db, owned: true}, nil
	}
}

// Load returns the stored manifest.
func (s *CacheStore) Load(ctx context.Context) (cache.Manifest, bool, error) {
	var (
		m                  cache.Manifest
		kind               string
		createdAt, rootMod int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, generation, created_at, root_mod_time
		FROM manifests
		LIMIT 1
	`).Scan(&kind, &m.Generation, &createdAt, &rootMod)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Manifest{}, false, nil
	}
	if err != nil {
		return cache.Manifest{}, false, fmt.Errorf("load manifest: %w", err)
	}
	m.Kind = module.Kind(kind)
	m.CreatedAt = fromNanos(createdAt)
	m.RootModTime = fromNanos(rootMod)

	if m.Directories, err = s.loadDirectories(ctx, kind); err != nil {
		return cache.Manifest{}, false, err
	}
	if m.Definitions, err = s.loadDefinitions(ctx, kind); err != nil {
		return cache.Manifest{}, false, err
	}
	if m.Modules, err = s.loadModules(ctx, kind); err != nil {
		return cache.Manifest{}, false, err
	}
	if err := s.loadAssets(ctx, kind, m.Modules); err != nil {
		return cache.Manifest{}, false, err
	}
	return m, true, nil
}

func (s *CacheStore) loadDirectories(ctx context.Context, kind string) ([]cache.DirEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, mod_time
		FROM manifest_directories
		WHERE kind = ?
		ORDER BY position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("load manifest directories: %w", err)
	}
	defer rows.Close()

	dirs := []cache.DirEntry{}
	for rows.Next() {
		var (
			d       cache.DirEntry
			modTime int64
		)
		if err := rows.Scan(&d.Path, &modTime); err != nil {
			return nil, fmt.Errorf("scan manifest directory: %w", err)
		}
		d.ModTime = fromNanos(modTime)
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}

func (s *CacheStore) loadDefinitions(ctx context.Context, kind string) ([]cache.FileEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, size, mod_time
		FROM manifest_definitions
		WHERE kind = ?
		ORDER BY position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("load manifest definitions: %w", err)
	}
	defer rows.Close()

	defs := []cache.FileEntry{}
	for rows.Next() {
		var (
			d       cache.FileEntry
			modTime int64
		)
		if err := rows.Scan(&d.Path, &d.Size, &modTime); err != nil {
			return nil, fmt.Errorf("scan manifest definition: %w", err)
		}
		d.ModTime = fromNanos(modTime)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *CacheStore) loadModules(ctx context.Context, kind string) ([]cache.ModuleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT directory, mod_time
		FROM manifest_modules
		WHERE kind = ?
		ORDER BY position
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("load manifest modules: %w", err)
	}
	defer rows.Close()

	modules := []cache.ModuleEntry{}
	for rows.Next() {
		var (
			e       cache.ModuleEntry
			modTime int64
		)
		if err := rows.Scan(&e.Directory, &modTime); err != nil {
			return nil, fmt.Errorf("scan manifest module: %w", err)
		}
		e.ModTime = fromNanos(modTime)
		e.Assets = []cache.AssetEntry{}
		modules = append(modules, e)
	}
	return modules, rows.Err()
}

func (s *CacheStore) loadAssets(ctx context.Context, kind string, modules []cache.ModuleEntry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module_position, source_filename, fingerprint, size, mod_time
		FROM manifest_assets
		WHERE kind = ?
		ORDER BY module_position, position
	`, kind)
	if err != nil {
		return fmt.Errorf("load manifest assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos     int
			a       cache.AssetEntry
			modTime int64
		)
		if err := rows.Scan(&pos, &a.SourceFilename, &a.Fingerprint, &a.Size, &modTime); err != nil {
			return fmt.Errorf("scan manifest asset: %w", err)
		}
		if pos < 0 || pos >= len(modules) {
			return fmt.Errorf("manifest asset %s references missing module %d", a.SourceFilename, pos)
		}
		a.ModTime = fromNanos(modTime)
		modules[pos].Assets = append(modules[pos].Assets, a)
	}
	return rows.Err()
}

// Save replaces the stored manifest.
func (s *CacheStore) Save(ctx context.Context, m cache.Manifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(ctx, tx); err != nil {
		return err
	}

	kind := string(m.Kind)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO manifests (kind, generation, created_at, root_mod_time)
		VALUES (?, ?, ?, ?)
	`, kind, m.Generation, toNanos(m.CreatedAt), toNanos(m.RootModTime)); err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}

	for i, d := range m.Directories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO manifest_directories (kind, position, path, mod_time)
			VALUES (?, ?, ?, ?)
		`, kind, i, d.Path, toNanos(d.ModTime)); err != nil {
			return fmt.Errorf("insert manifest directory %s: %w", d.Path, err)
		}
	}

	for i, d := range m.Definitions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO manifest_definitions (kind, position, path, size, mod_time)
			VALUES (?, ?, ?, ?, ?)
		`, kind, i, d.Path, d.Size, toNanos(d.ModTime)); err != nil {
			return fmt.Errorf("insert manifest definition %s: %w", d.Path, err)
		}
	}

	for i, e := range m.Modules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO manifest_modules (kind, position, directory, mod_time)
			VALUES (?, ?, ?, ?)
		`, kind, i, e.Directory, toNanos(e.ModTime)); err != nil {
			return fmt.Errorf("insert manifest module %s: %w", e.Directory, err)
		}
		for j, a := range e.Assets {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO manifest_assets (kind, module_position, position, source_filename, fingerprint, size, mod_time)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, kind, i, j, a.SourceFilename, a.Fingerprint, a.Size, toNanos(a.ModTime)); err != nil {
				return fmt.Errorf("insert manifest asset %s: %w", e.AssetPath(a), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// Clear removes the stored manifest.
func (s *CacheStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database when the store opened it.
func (s *CacheStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func clearTx(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"manifest_assets", "manifest_modules", "manifest_directories", "manifest_definitions", "manifests"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// toNanos stores the zero time as 0; its UnixNano is out of range.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

var _ ports.CacheStore = (*CacheStore)(nil)
