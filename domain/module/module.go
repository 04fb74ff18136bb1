// Package module provides the module identity and containment model: a
// directory-scoped, releasable collection of assets, plus the containers that
// group modules of one kind.
// This package has NO dependencies on I/O; the file system a module carries is
// only handed to collaborators that resolve asset paths.
package module

import (
	"io"
	"io/fs"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Module is a directory-scoped collection of assets of one kind.
type Module struct {
	directory string
	assets    []Asset
	fsys      fs.FS
}

// New creates a module for rawDirectory. Exactly one trailing '/' or '\' is
// removed; no I/O is performed.
func New(rawDirectory string, fsys fs.FS) *Module {
	return &Module{
		directory: trimTrailingSeparator(rawDirectory),
		fsys:      fsys,
	}
}

// Directory returns the normalized module directory.
func (m *Module) Directory() string {
	return m.directory
}

// FileSystem returns the scope used to resolve the module's asset paths.
func (m *Module) FileSystem() fs.FS {
	return m.fsys
}

// Assets returns the assets in insertion order.
func (m *Module) Assets() []Asset {
	out := make([]Asset, len(m.assets))
	copy(out, m.assets)
	return out
}

// AddAsset appends assets. Order is significant: traversal and release follow it.
func (m *Module) AddAsset(assets ...Asset) {
	m.assets = append(m.assets, assets...)
}

// AssetPath composes the module-relative path of a source filename, using '/'
// separators.
func (m *Module) AssetPath(sourceFilename string) string {
	name := NormalizePath(sourceFilename)
	dir := NormalizePath(m.directory)
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// ContainsPath reports whether path names this module itself or one of its
// assets. Comparison is case-insensitive and accepts either separator style.
func (m *Module) ContainsPath(path string) bool {
	candidate := trimTrailingSeparator(NormalizePath(path))
	if strings.EqualFold(candidate, NormalizePath(m.directory)) {
		return true
	}
	if candidate == "" {
		return false
	}

	found := false
	m.Accept(VisitorFuncs{
		Asset: func(a Asset) {
			if !found && strings.EqualFold(candidate, m.AssetPath(a.SourceFilename())) {
				found = true
			}
		},
	})
	return found
}

// Accept visits the module once, then every asset in insertion order.
func (m *Module) Accept(v Visitor) {
	v.VisitModule(m)
	for _, a := range m.assets {
		a.Accept(v)
	}
}

// Close releases every asset implementing io.Closer, in insertion order.
// Other assets are skipped. Every closer is called even when an earlier one
// fails; the failures are returned together.
func (m *Module) Close() error {
	var result *multierror.Error
	for _, a := range m.assets {
		c, ok := a.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NormalizePath converts '\' separators to '/'.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// DefinitionFileName is the per-directory file that orders and filters the
// assets of a module.
const DefinitionFileName = "module.yaml"

// IsHidden reports whether any segment of a slash-separated path starts with
// a dot. Hidden files and directories never belong to modules.
func IsHidden(p string) bool {
	for _, seg := range strings.Split(NormalizePath(p), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

func trimTrailingSeparator(p string) string {
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, `\`) {
		return p[:len(p)-1]
	}
	return p
}
