// Package memory provides in-memory implementations for testing.
package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing/fstest"

	"github.com/artpar/cassette/adapters/clock"
	"github.com/artpar/cassette/ports"
)

// tree is the storage shared by a file system and every scope derived from it.
type tree struct {
	mu    sync.RWMutex
	files fstest.MapFS
	clock ports.Clock
}

// FileSystem is an in-memory implementation of ports.FileSystem. Writing a
// file stamps its parent directories with the clock's time, so directory
// modification times move like on disk.
type FileSystem struct {
	tree   *tree
	prefix string
}

// NewFileSystem creates an empty in-memory file system. A nil clock uses the
// system clock.
func NewFileSystem(clk ports.Clock) *FileSystem {
	if clk == nil {
		clk = clock.Real{}
	}
	t := &tree{files: fstest.MapFS{}, clock: clk}
	t.files["."] = &fstest.MapFile{Mode: fs.ModeDir | 0o755, ModTime: clk.Now()}
	return &FileSystem{tree: t}
}

// Path returns the scope prefix, "/" for the root.
func (f *FileSystem) Path() string {
	return "/" + f.prefix
}

// Open implements fs.FS.
func (f *FileSystem) Open(name string) (fs.File, error) {
	full, err := f.full(name)
	if err != nil {
		return nil, err
	}
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.tree.files.Open(full)
}

// AtSubDirectory scopes a sub-directory.
func (f *FileSystem) AtSubDirectory(name string, create bool) (ports.FileSystem, error) {
	full, err := f.full(name)
	if err != nil {
		return nil, err
	}

	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()

	info, statErr := fs.Stat(f.tree.files, full)
	switch {
	case statErr == nil && !info.IsDir():
		return nil, fmt.Errorf("open directory %s: not a directory", full)
	case statErr != nil && !create:
		return nil, fmt.Errorf("open directory %s: %w", full, fs.ErrNotExist)
	case statErr != nil:
		f.tree.mkdirAll(full)
	}

	return &FileSystem{tree: f.tree, prefix: full}, nil
}

// ReadFile reads the named file.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	full, err := f.full(name)
	if err != nil {
		return nil, err
	}
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.tree.files.ReadFile(full)
}

// Stat describes the named file.
func (f *FileSystem) Stat(name string) (fs.FileInfo, error) {
	full, err := f.full(name)
	if err != nil {
		return nil, err
	}
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.tree.files.Stat(full)
}

// WriteFile stores a copy of data under name.
func (f *FileSystem) WriteFile(name string, data []byte) error {
	full, err := f.full(name)
	if err != nil {
		return err
	}
	if full == "." {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrInvalid}
	}

	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()

	if existing, ok := f.tree.files[full]; ok && existing.Mode.IsDir() {
		return &fs.PathError{Op: "write", Path: name, Err: errors.New("is a directory")}
	}
	_, existed := f.tree.files[full]

	buf := make([]byte, len(data))
	copy(buf, data)
	f.tree.mkdirAll(path.Dir(full))
	f.tree.files[full] = &fstest.MapFile{Data: buf, Mode: 0o644, ModTime: f.tree.clock.Now()}
	if !existed {
		f.tree.touch(path.Dir(full))
	}
	return nil
}

// Remove deletes the named file; a missing file is not an error.
func (f *FileSystem) Remove(name string) error {
	full, err := f.full(name)
	if err != nil {
		return err
	}

	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()

	if _, ok := f.tree.files[full]; !ok {
		return nil
	}
	delete(f.tree.files, full)
	f.tree.touch(path.Dir(full))
	return nil
}

func (f *FileSystem) full(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if !fs.ValidPath(clean) {
		return "", &fs.PathError{Op: "scope", Path: name, Err: fs.ErrInvalid}
	}
	if f.prefix == "" {
		return clean, nil
	}
	return path.Join(f.prefix, clean), nil
}

// mkdirAll records explicit entries for dir and its ancestors. Callers hold mu.
func (t *tree) mkdirAll(dir string) {
	for dir != "." && dir != "/" && dir != "" {
		if _, ok := t.files[dir]; ok {
			return
		}
		t.files[dir] = &fstest.MapFile{Mode: fs.ModeDir | 0o755, ModTime: t.clock.Now()}
		t.touch(path.Dir(dir))
		dir = path.Dir(dir)
	}
}

// touch updates a directory's modification time. Callers hold mu.
func (t *tree) touch(dir string) {
	if dir == "" {
		dir = "."
	}
	if d, ok := t.files[dir]; ok && d.Mode.IsDir() {
		d.ModTime = t.clock.Now()
	}
}

var _ ports.FileSystem = (*FileSystem)(nil)
