package memory_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/artpar/cassette/adapters/clock"
	"github.com/artpar/cassette/adapters/memory"
	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/domain/module"
)

func TestFileSystem_WriteRead(t *testing.T) {
	fsys := memory.NewFileSystem(nil)

	if err := fsys.WriteFile("scripts/app/main.js", []byte("var a;")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := fsys.ReadFile("scripts/app/main.js")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "var a;" {
		t.Errorf("ReadFile() = %q", data)
	}

	entries, err := fs.ReadDir(fsys, "scripts")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "app" || !entries[0].IsDir() {
		t.Errorf("ReadDir(scripts) = %v", entries)
	}
}

func TestFileSystem_BackslashNames(t *testing.T) {
	fsys := memory.NewFileSystem(nil)

	if err := fsys.WriteFile(`styles\site.css`, []byte("body{}")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := fsys.Stat("styles/site.css"); err != nil {
		t.Errorf("Stat() error = %v", err)
	}
}

func TestFileSystem_AtSubDirectory(t *testing.T) {
	fsys := memory.NewFileSystem(nil)

	if _, err := fsys.AtSubDirectory("ScriptModule", false); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("AtSubDirectory(create=false) error = %v, want ErrNotExist", err)
	}

	sub, err := fsys.AtSubDirectory("ScriptModule", true)
	if err != nil {
		t.Fatalf("AtSubDirectory() error = %v", err)
	}
	if sub.Path() != "/ScriptModule" {
		t.Errorf("Path() = %s, want /ScriptModule", sub.Path())
	}

	if err := sub.WriteFile("manifest.yaml", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := fsys.Stat("ScriptModule/manifest.yaml"); err != nil {
		t.Errorf("write through sub-scope not visible from parent: %v", err)
	}

	again, err := fsys.AtSubDirectory("ScriptModule", false)
	if err != nil {
		t.Fatalf("AtSubDirectory(existing) error = %v", err)
	}
	if _, err := again.ReadFile("manifest.yaml"); err != nil {
		t.Errorf("ReadFile() error = %v", err)
	}

	if _, err := fsys.AtSubDirectory("ScriptModule/manifest.yaml", true); err == nil {
		t.Error("AtSubDirectory on a file should fail")
	}
}

func TestFileSystem_DirectoryModTime(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	fsys := memory.NewFileSystem(clk)

	if err := fsys.WriteFile("app/a.js", []byte("a")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	before, _ := fsys.Stat("app")

	clk.Advance(time.Minute)
	if err := fsys.WriteFile("app/a.js", []byte("changed")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	same, _ := fsys.Stat("app")
	if !same.ModTime().Equal(before.ModTime()) {
		t.Error("rewriting a file should not change its directory's mod time")
	}

	clk.Advance(time.Minute)
	if err := fsys.WriteFile("app/b.js", []byte("b")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	after, _ := fsys.Stat("app")
	if !after.ModTime().After(before.ModTime()) {
		t.Error("adding a file should change its directory's mod time")
	}

	clk.Advance(time.Minute)
	if err := fsys.Remove("app/b.js"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	removed, _ := fsys.Stat("app")
	if !removed.ModTime().After(after.ModTime()) {
		t.Error("removing a file should change its directory's mod time")
	}
	if err := fsys.Remove("app/b.js"); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}
}

func TestFileSystem_RejectsEscapes(t *testing.T) {
	fsys := memory.NewFileSystem(nil)

	if err := fsys.WriteFile("../x.js", []byte("x")); err == nil {
		t.Error("WriteFile should reject paths leaving the scope")
	}
}

func TestCacheStore(t *testing.T) {
	store := memory.NewCacheStore()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("Load() on empty store = ok %v, err %v", ok, err)
	}

	m := cache.Manifest{Kind: module.KindScript, Generation: "g1"}
	if err := store.Save(ctx, m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if got.Generation != "g1" {
		t.Errorf("Generation = %s, want g1", got.Generation)
	}
	if store.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", store.Saves())
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Error("Load() after Clear should find nothing")
	}

	store.Close()
	if !store.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestCacheStores_OnePerScope(t *testing.T) {
	fsys := memory.NewFileSystem(nil)
	stores := memory.NewCacheStores()

	a, _ := fsys.AtSubDirectory("ScriptModule", true)
	b, _ := fsys.AtSubDirectory("StylesheetModule", true)

	sa, _ := stores.Open(a)
	sa2, _ := stores.Open(a)
	sb, _ := stores.Open(b)

	if sa != sa2 {
		t.Error("same scope should share a store")
	}
	if sa == sb {
		t.Error("different scopes should not share a store")
	}
}
