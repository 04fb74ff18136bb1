// Package cache provides the value types persisted by module caches and the
// pure freshness checks run against them.
// This package has NO dependencies on I/O.
package cache

import (
	"time"

	"github.com/artpar/cassette/domain/module"
)

// Manifest is the stored, resolved module set of one kind.
type Manifest struct {
	Kind        module.Kind   `yaml:"kind"`
	Generation  string        `yaml:"generation"`
	CreatedAt   time.Time     `yaml:"created_at"`
	RootModTime time.Time     `yaml:"root_mod_time"`
	Directories []DirEntry    `yaml:"directories"`
	Definitions []FileEntry   `yaml:"definitions"`
	Modules     []ModuleEntry `yaml:"modules"`
}

// DirEntry records the modification time of a source directory. Creating or
// removing an entry changes the modification time of its parent, so a tree
// whose directories all keep their times has gained no new files.
type DirEntry struct {
	Path    string    `yaml:"path"`
	ModTime time.Time `yaml:"mod_time"`
}

// FileEntry records a module definition file. Rewriting a file in place
// leaves its directory untouched, so definitions are compared one by one.
type FileEntry struct {
	Path    string    `yaml:"path"`
	Size    int64     `yaml:"size"`
	ModTime time.Time `yaml:"mod_time"`
}

// ModuleEntry describes one cached module.
type ModuleEntry struct {
	Directory string       `yaml:"directory"`
	ModTime   time.Time    `yaml:"mod_time"`
	Assets    []AssetEntry `yaml:"assets"`
}

// AssetEntry describes one cached asset.
type AssetEntry struct {
	SourceFilename string    `yaml:"source_filename"`
	Fingerprint    string    `yaml:"fingerprint,omitempty"`
	Size           int64     `yaml:"size"`
	ModTime        time.Time `yaml:"mod_time"`
}

// FileState is the observed state of a source file or directory.
type FileState struct {
	Exists  bool
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Reasons a manifest is stale.
const (
	ReasonFresh             = ""
	ReasonKindMismatch      = "kind_mismatch"
	ReasonRootChanged       = "root_changed"
	ReasonDirChanged        = "directory_changed"
	ReasonDefinitionChanged = "definition_changed"
	ReasonModuleChanged     = "module_changed"
	ReasonAssetMissing      = "asset_missing"
	ReasonAssetChanged      = "asset_changed"
	ReasonEmptyGeneration   = "empty_generation"
)

// Freshness is the outcome of a manifest freshness check (value type).
type Freshness struct {
	Fresh  bool
	Reason string
	Path   string // offending path, when there is one
}

// StatFunc returns the state of a source path relative to the source root.
type StatFunc func(path string) FileState

// Check decides whether m still describes the source tree of kind. The root,
// every recorded directory and every module directory must keep their
// modification times (adding or removing files changes them), and every
// recorded definition file and every asset must keep its size and
// modification time.
func Check(m Manifest, kind module.Kind, stat StatFunc) Freshness {
	if m.Kind != kind {
		return Freshness{Reason: ReasonKindMismatch}
	}
	if m.Generation == "" {
		return Freshness{Reason: ReasonEmptyGeneration}
	}

	root := stat(".")
	if !root.Exists || !root.ModTime.Equal(m.RootModTime) {
		return Freshness{Reason: ReasonRootChanged, Path: "."}
	}

	for _, d := range m.Directories {
		st := stat(d.Path)
		if !st.Exists || !st.IsDir || !st.ModTime.Equal(d.ModTime) {
			return Freshness{Reason: ReasonDirChanged, Path: d.Path}
		}
	}

	for _, d := range m.Definitions {
		st := stat(d.Path)
		if !st.Exists || st.IsDir || st.Size != d.Size || !st.ModTime.Equal(d.ModTime) {
			return Freshness{Reason: ReasonDefinitionChanged, Path: d.Path}
		}
	}

	for _, entry := range m.Modules {
		dir := entry.Directory
		if dir == "" {
			dir = "."
		}
		st := stat(dir)
		if !st.Exists || !st.ModTime.Equal(entry.ModTime) {
			return Freshness{Reason: ReasonModuleChanged, Path: dir}
		}

		for _, a := range entry.Assets {
			p := entry.AssetPath(a)
			st := stat(p)
			if !st.Exists {
				return Freshness{Reason: ReasonAssetMissing, Path: p}
			}
			if st.Size != a.Size || !st.ModTime.Equal(a.ModTime) {
				return Freshness{Reason: ReasonAssetChanged, Path: p}
			}
		}
	}

	return Freshness{Fresh: true}
}

// AssetPath returns the root-relative path of an asset of this module.
func (e ModuleEntry) AssetPath(a AssetEntry) string {
	return module.New(e.Directory, nil).AssetPath(a.SourceFilename)
}

// AssetCount returns the number of assets across all modules.
func (m Manifest) AssetCount() int {
	n := 0
	for _, e := range m.Modules {
		n += len(e.Assets)
	}
	return n
}
