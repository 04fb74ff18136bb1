// Package localfs provides the disk-backed ports.FileSystem.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/artpar/cassette/ports"
)

// Dir is a ports.FileSystem rooted at a directory on disk.
type Dir struct {
	root string
	fsys fs.FS
}

// Open scopes a directory. When create is true the directory is created if
// missing; otherwise it must already exist.
func Open(root string, create bool) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	if create {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", abs, err)
		}
	} else {
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("open directory %s: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("open directory %s: not a directory", abs)
		}
	}

	return &Dir{root: abs, fsys: os.DirFS(abs)}, nil
}

// Path returns the absolute OS path of the directory.
func (d *Dir) Path() string {
	return d.root
}

// Open implements fs.FS.
func (d *Dir) Open(name string) (fs.File, error) {
	return d.fsys.Open(name)
}

// AtSubDirectory scopes a sub-directory. Either separator style is accepted.
func (d *Dir) AtSubDirectory(name string, create bool) (ports.FileSystem, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(d.root, filepath.FromSlash(clean)), create)
}

// ReadFile reads the named file.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(d.fsys, name)
}

// Stat describes the named file.
func (d *Dir) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(d.fsys, name)
}

// WriteFile writes through a temporary file and renames it into place, so
// readers never observe a partial file.
func (d *Dir) WriteFile(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	target := filepath.Join(d.root, filepath.FromSlash(clean))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Remove deletes the named file; a missing file is not an error.
func (d *Dir) Remove(name string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(d.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// cleanName converts name to a valid io/fs path that stays inside the scope.
func cleanName(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if !fs.ValidPath(clean) {
		return "", &fs.PathError{Op: "scope", Path: name, Err: fs.ErrInvalid}
	}
	return clean, nil
}

var _ ports.FileSystem = (*Dir)(nil)
