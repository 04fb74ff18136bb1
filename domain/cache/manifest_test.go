package cache_test

import (
	"testing"
	"time"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/domain/module"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeTree maps root-relative paths to file states.
type fakeTree map[string]cache.FileState

func (f fakeTree) stat(path string) cache.FileState {
	return f[path]
}

func baseTree() fakeTree {
	return fakeTree{
		".":               {Exists: true, IsDir: true, ModTime: t0},
		"app":             {Exists: true, IsDir: true, ModTime: t0.Add(time.Minute)},
		"app/main.js":     {Exists: true, Size: 10, ModTime: t0.Add(2 * time.Minute)},
		"app/helpers.js":  {Exists: true, Size: 20, ModTime: t0.Add(3 * time.Minute)},
		"vendor":          {Exists: true, IsDir: true, ModTime: t0.Add(4 * time.Minute)},
		"app/module.yaml": {Exists: true, Size: 30, ModTime: t0.Add(5 * time.Minute)},
	}
}

func buildModules() []*module.Module {
	m := module.New("app", nil)
	m.AddAsset(
		&module.SourceFile{Filename: "main.js", Fingerprint: "abc"},
		&module.SourceFile{Filename: "helpers.js"},
	)
	return []*module.Module{m}
}

func buildManifest(tree fakeTree) cache.Manifest {
	return cache.Build(cache.BuildParams{
		Kind:           module.KindScript,
		Generation:     "gen-1",
		CreatedAt:      t0,
		Stat:           tree.stat,
		Directories:    []string{"app", "vendor"},
		DefinitionFile: module.DefinitionFileName,
		Modules:        buildModules(),
	})
}

func TestBuild_DescribesModules(t *testing.T) {
	m := buildManifest(baseTree())

	if m.Kind != module.KindScript {
		t.Errorf("Kind = %s, want %s", m.Kind, module.KindScript)
	}
	if !m.RootModTime.Equal(t0) {
		t.Errorf("RootModTime = %v, want %v", m.RootModTime, t0)
	}
	if len(m.Modules) != 1 {
		t.Fatalf("len(Modules) = %d, want 1", len(m.Modules))
	}
	entry := m.Modules[0]
	if entry.Directory != "app" {
		t.Errorf("Directory = %s, want app", entry.Directory)
	}
	if len(entry.Assets) != 2 {
		t.Fatalf("len(Assets) = %d, want 2", len(entry.Assets))
	}
	if entry.Assets[0].Fingerprint != "abc" || entry.Assets[0].Size != 10 {
		t.Errorf("Assets[0] = %+v", entry.Assets[0])
	}
	if entry.Assets[1].SourceFilename != "helpers.js" || entry.Assets[1].Size != 20 {
		t.Errorf("Assets[1] = %+v", entry.Assets[1])
	}
	if len(m.Directories) != 2 || m.Directories[1].Path != "vendor" || !m.Directories[1].ModTime.Equal(t0.Add(4*time.Minute)) {
		t.Errorf("Directories = %+v", m.Directories)
	}
	if len(m.Definitions) != 1 || m.Definitions[0].Path != "app/module.yaml" || m.Definitions[0].Size != 30 {
		t.Errorf("Definitions = %+v, want only app/module.yaml", m.Definitions)
	}
	if m.AssetCount() != 2 {
		t.Errorf("AssetCount() = %d, want 2", m.AssetCount())
	}
}

func TestCheck_Fresh(t *testing.T) {
	tree := baseTree()
	m := buildManifest(tree)

	got := cache.Check(m, module.KindScript, tree.stat)
	if !got.Fresh {
		t.Errorf("Check() = %+v, want fresh", got)
	}
}

func TestCheck_Stale(t *testing.T) {
	tests := []struct {
		name   string
		kind   module.Kind
		mutate func(fakeTree, *cache.Manifest)
		reason string
	}{
		{
			name:   "kind mismatch",
			kind:   module.KindStylesheet,
			mutate: func(fakeTree, *cache.Manifest) {},
			reason: cache.ReasonKindMismatch,
		},
		{
			name:   "empty generation",
			kind:   module.KindScript,
			mutate: func(_ fakeTree, m *cache.Manifest) { m.Generation = "" },
			reason: cache.ReasonEmptyGeneration,
		},
		{
			name: "root changed",
			kind: module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) {
				tr["."] = cache.FileState{Exists: true, IsDir: true, ModTime: t0.Add(time.Hour)}
			},
			reason: cache.ReasonRootChanged,
		},
		{
			name: "plain directory changed",
			kind: module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) {
				tr["vendor"] = cache.FileState{Exists: true, IsDir: true, ModTime: t0.Add(time.Hour)}
			},
			reason: cache.ReasonDirChanged,
		},
		{
			name: "definition rewritten in place",
			kind: module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) {
				tr["app/module.yaml"] = cache.FileState{Exists: true, Size: 30, ModTime: t0.Add(time.Hour)}
			},
			reason: cache.ReasonDefinitionChanged,
		},
		{
			name:   "definition removed",
			kind:   module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) { delete(tr, "app/module.yaml") },
			reason: cache.ReasonDefinitionChanged,
		},
		{
			name: "module removed",
			kind: module.KindScript,
			mutate: func(tr fakeTree, m *cache.Manifest) {
				delete(tr, "app")
				m.Directories = m.Directories[1:]
			},
			reason: cache.ReasonModuleChanged,
		},
		{
			name:   "asset removed",
			kind:   module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) { delete(tr, "app/helpers.js") },
			reason: cache.ReasonAssetMissing,
		},
		{
			name: "asset resized",
			kind: module.KindScript,
			mutate: func(tr fakeTree, _ *cache.Manifest) {
				st := tr["app/main.js"]
				st.Size = 11
				tr["app/main.js"] = st
			},
			reason: cache.ReasonAssetChanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := baseTree()
			m := buildManifest(tree)
			tt.mutate(tree, &m)

			got := cache.Check(m, tt.kind, tree.stat)
			if got.Fresh {
				t.Fatal("Check() = fresh, want stale")
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %s, want %s", got.Reason, tt.reason)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	m := buildManifest(baseTree())

	modules := cache.Restore(m, nil)
	if len(modules) != 1 {
		t.Fatalf("len(modules) = %d, want 1", len(modules))
	}
	if !modules[0].ContainsPath(`APP\helpers.js`) {
		t.Error("restored module should contain helpers.js")
	}

	assets := modules[0].Assets()
	f, ok := assets[0].(*module.SourceFile)
	if !ok {
		t.Fatalf("asset type = %T, want *module.SourceFile", assets[0])
	}
	if f.Fingerprint != "abc" || f.Size != 10 {
		t.Errorf("asset = %+v", f)
	}
}

func TestBuild_RootModule(t *testing.T) {
	tree := fakeTree{
		".":        {Exists: true, IsDir: true, ModTime: t0},
		"site.css": {Exists: true, Size: 3, ModTime: t0},
	}
	root := module.New("", nil)
	root.AddAsset(&module.SourceFile{Filename: "site.css"})

	m := cache.Build(cache.BuildParams{
		Kind:       module.KindStylesheet,
		Generation: "g",
		Stat:       tree.stat,
		Modules:    []*module.Module{root},
	})

	if got := cache.Check(m, module.KindStylesheet, tree.stat); !got.Fresh {
		t.Errorf("Check() = %+v, want fresh", got)
	}
}
