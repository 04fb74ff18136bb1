package localfs_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/cassette/adapters/localfs"
)

func TestOpen_MissingWithoutCreate(t *testing.T) {
	_, err := localfs.Open(filepath.Join(t.TempDir(), "missing"), false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open() error = %v, want ErrNotExist", err)
	}
}

func TestOpen_Create(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache", "nested")

	d, err := localfs.Open(root, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Path() != root {
		t.Errorf("Path() = %s, want %s", d.Path(), root)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestAtSubDirectory(t *testing.T) {
	d, err := localfs.Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := d.AtSubDirectory("ScriptModule", false); err == nil {
		t.Error("AtSubDirectory without create should fail for a missing directory")
	}

	sub, err := d.AtSubDirectory("ScriptModule", true)
	if err != nil {
		t.Fatalf("AtSubDirectory() error = %v", err)
	}
	if sub.Path() != filepath.Join(d.Path(), "ScriptModule") {
		t.Errorf("Path() = %s", sub.Path())
	}

	nested, err := d.AtSubDirectory(`a\b`, true)
	if err != nil {
		t.Fatalf("AtSubDirectory(a\\b) error = %v", err)
	}
	if nested.Path() != filepath.Join(d.Path(), "a", "b") {
		t.Errorf("Path() = %s", nested.Path())
	}

	if _, err := d.AtSubDirectory("../escape", true); err == nil {
		t.Error("AtSubDirectory should reject paths leaving the scope")
	}
}

func TestWriteReadRemove(t *testing.T) {
	d, err := localfs.Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := d.WriteFile("dir/manifest.yaml", []byte("kind: ScriptModule\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := d.ReadFile("dir/manifest.yaml")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "kind: ScriptModule\n" {
		t.Errorf("ReadFile() = %q", data)
	}

	info, err := d.Stat("dir/manifest.yaml")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != int64(len(data)) {
		t.Errorf("Size() = %d, want %d", info.Size(), len(data))
	}

	entries, err := fs.ReadDir(d, "dir")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ReadDir() = %d entries, want 1 (temp file left behind?)", len(entries))
	}

	if err := d.Remove("dir/manifest.yaml"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := d.Remove("dir/manifest.yaml"); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
	if _, err := d.Stat("dir/manifest.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat() after Remove error = %v, want ErrNotExist", err)
	}
}
