package factory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/cassette/adapters/factory"
	"github.com/artpar/cassette/adapters/memory"
	"github.com/artpar/cassette/domain/module"
)

func writeFiles(t *testing.T, fs *memory.FileSystem, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := fs.WriteFile(name, []byte(content)); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
}

func directories(modules []*module.Module) []string {
	dirs := make([]string, len(modules))
	for i, m := range modules {
		dirs[i] = m.Directory()
	}
	return dirs
}

func filenames(m *module.Module) []string {
	var names []string
	for _, a := range m.Assets() {
		names = append(names, a.SourceFilename())
	}
	return names
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateModules_GroupsByDirectory(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{
		"main.js":              "root",
		"scripts/app/b.js":     "b",
		"scripts/app/a.js":     "a",
		"scripts/lib/x.coffee": "x",
		"styles/site.css":      "body{}",
		".cache/old.js":        "stale",
	})

	modules, err := factory.NewScriptModuleFactory(root).CreateModules(context.Background())
	if err != nil {
		t.Fatalf("CreateModules() error = %v", err)
	}

	want := []string{"", "scripts/app", "scripts/lib"}
	if got := directories(modules); !equal(got, want) {
		t.Fatalf("directories = %v, want %v", got, want)
	}
	if got := filenames(modules[1]); !equal(got, []string{"a.js", "b.js"}) {
		t.Errorf("assets = %v, want [a.js b.js]", got)
	}
	if !modules[1].ContainsPath(`scripts\APP\b.js`) {
		t.Error("module should contain scripts/app/b.js")
	}
}

func TestCreateModules_PerKind(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{
		"a/x.js":      "",
		"b/y.less":    "",
		"c/page.html": "",
		"c/old.htm":   "",
	})

	tests := []struct {
		kind module.Kind
		want []string
	}{
		{module.KindScript, []string{"a"}},
		{module.KindStylesheet, []string{"b"}},
		{module.KindHTMLTemplate, []string{"c"}},
	}

	reg := factory.Defaults()
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			ctor, ok := reg.Lookup(tt.kind)
			if !ok {
				t.Fatalf("Lookup(%s) not found", tt.kind)
			}
			f := ctor(root)
			if f.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", f.Kind(), tt.kind)
			}
			modules, err := f.CreateModules(context.Background())
			if err != nil {
				t.Fatalf("CreateModules() error = %v", err)
			}
			if got := directories(modules); !equal(got, tt.want) {
				t.Errorf("directories = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateModules_ModuleDefinition(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{
		"app/a.js":      "",
		"app/b.js":      "",
		"app/c.js":      "",
		"app/c.test.js": "",
		"app/module.yaml": `
assets:
  - c.js
  - a.js
exclude:
  - "*.test.js"
`,
	})

	modules, err := factory.NewScriptModuleFactory(root).CreateModules(context.Background())
	if err != nil {
		t.Fatalf("CreateModules() error = %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("len(modules) = %d, want 1", len(modules))
	}
	want := []string{"c.js", "a.js", "b.js"}
	if got := filenames(modules[0]); !equal(got, want) {
		t.Errorf("assets = %v, want %v", got, want)
	}
}

func TestCreateModules_DefinitionListsMissingFile(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{
		"app/a.js":        "",
		"app/module.yaml": "assets: [missing.js]\n",
	})

	if _, err := factory.NewScriptModuleFactory(root).CreateModules(context.Background()); err == nil {
		t.Error("CreateModules() should fail when module.yaml lists a missing file")
	}
}

func TestCreateModules_CancelledContext(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{"app/a.js": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := factory.NewScriptModuleFactory(root).CreateModules(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CreateModules() error = %v, want context.Canceled", err)
	}
}

func TestFileAsset(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{"app/main.js": "console.log(1)"})

	modules, err := factory.NewScriptModuleFactory(root).CreateModules(context.Background())
	if err != nil {
		t.Fatalf("CreateModules() error = %v", err)
	}
	asset, ok := modules[0].Assets()[0].(*factory.FileAsset)
	if !ok {
		t.Fatalf("asset type = %T, want *factory.FileAsset", modules[0].Assets()[0])
	}

	if asset.Path() != "app/main.js" {
		t.Errorf("Path() = %s, want app/main.js", asset.Path())
	}
	if asset.Size != int64(len("console.log(1)")) {
		t.Errorf("Size = %d", asset.Size)
	}
	if asset.Fingerprint != factory.Fingerprint([]byte("console.log(1)")) {
		t.Errorf("Fingerprint = %s", asset.Fingerprint)
	}
	if len(asset.Fingerprint) != 64 {
		t.Errorf("len(Fingerprint) = %d, want 64", len(asset.Fingerprint))
	}

	content, err := asset.Content()
	if err != nil || string(content) != "console.log(1)" {
		t.Errorf("Content() = %q, %v", content, err)
	}

	var visited module.Asset
	asset.Accept(module.VisitorFuncs{Asset: func(a module.Asset) { visited = a }})
	if visited != asset {
		t.Error("Accept should pass the asset itself to the visitor")
	}

	if err := modules[0].Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := asset.Content(); !errors.Is(err, factory.ErrReleased) {
		t.Errorf("Content() after Close error = %v, want ErrReleased", err)
	}
}

func TestFileAsset_ReadsContentOnFirstUse(t *testing.T) {
	root := memory.NewFileSystem(nil)
	writeFiles(t, root, map[string]string{"app/main.js": "v1"})

	modules, err := factory.NewScriptModuleFactory(root).CreateModules(context.Background())
	if err != nil {
		t.Fatalf("CreateModules() error = %v", err)
	}
	asset := modules[0].Assets()[0].(*factory.FileAsset)

	// The scan fingerprints the file but does not keep its bytes.
	writeFiles(t, root, map[string]string{"app/main.js": "v2"})

	content, err := asset.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if string(content) != "v2" {
		t.Errorf("Content() = %q, want v2", content)
	}
	if asset.Fingerprint != factory.Fingerprint([]byte("v1")) {
		t.Errorf("Fingerprint should describe the scanned content")
	}

	// Buffered from here on.
	writeFiles(t, root, map[string]string{"app/main.js": "v3"})
	if again, _ := asset.Content(); string(again) != "v2" {
		t.Errorf("second Content() = %q, want buffered v2", again)
	}
}
