// Package factory provides the module factories that turn a source tree into
// script, stylesheet and HTML template modules.
//
// Every directory directly holding files that match a kind's patterns becomes
// one module; the matching files are its assets. Assets are ordered
// lexically unless the directory has a module.yaml file:
//
//	assets:        # listed first, in this order
//	  - jquery.js
//	  - app.js
//	exclude:       # glob patterns, matched against file names
//	  - "*.test.js"
package factory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/artpar/cassette/core/registry"
	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
	"github.com/bmatcuk/doublestar/v4"
)

// ModuleFileName is the optional per-directory ordering file.
const ModuleFileName = module.DefinitionFileName

// Spec describes which files belong to a module kind.
type Spec struct {
	Kind    module.Kind
	Pattern string // doublestar pattern, relative to the source root
}

// Built-in specs.
var (
	ScriptSpec       = Spec{Kind: module.KindScript, Pattern: "**/*.{js,coffee}"}
	StylesheetSpec   = Spec{Kind: module.KindStylesheet, Pattern: "**/*.{css,less}"}
	HTMLTemplateSpec = Spec{Kind: module.KindHTMLTemplate, Pattern: "**/*.{htm,html}"}
)

// DirectoryFactory scans a source root for the files of one kind.
type DirectoryFactory struct {
	spec Spec
	root ports.FileSystem
}

// New creates a factory for spec, scanning root.
func New(spec Spec, root ports.FileSystem) *DirectoryFactory {
	return &DirectoryFactory{spec: spec, root: root}
}

// NewScriptModuleFactory creates the script module factory.
func NewScriptModuleFactory(root ports.FileSystem) ports.ModuleFactory {
	return New(ScriptSpec, root)
}

// NewStylesheetModuleFactory creates the stylesheet module factory.
func NewStylesheetModuleFactory(root ports.FileSystem) ports.ModuleFactory {
	return New(StylesheetSpec, root)
}

// NewHTMLTemplateModuleFactory creates the HTML template module factory.
func NewHTMLTemplateModuleFactory(root ports.FileSystem) ports.ModuleFactory {
	return New(HTMLTemplateSpec, root)
}

// Register binds the built-in kinds in reg.
func Register(reg *registry.Registry) error {
	bindings := []struct {
		kind module.Kind
		ctor ports.ModuleFactoryConstructor
	}{
		{module.KindScript, NewScriptModuleFactory},
		{module.KindStylesheet, NewStylesheetModuleFactory},
		{module.KindHTMLTemplate, NewHTMLTemplateModuleFactory},
	}
	for _, b := range bindings {
		if err := reg.Register(b.kind, b.ctor); err != nil {
			return err
		}
	}
	return nil
}

// Defaults returns a registry holding the built-in kinds.
func Defaults() *registry.Registry {
	reg := registry.New()
	if err := Register(reg); err != nil {
		panic(err) // empty registry cannot hold duplicates
	}
	return reg
}

// Kind implements ports.ModuleFactory.
func (f *DirectoryFactory) Kind() module.Kind {
	return f.spec.Kind
}

// CreateModules implements ports.ModuleFactory.
func (f *DirectoryFactory) CreateModules(ctx context.Context) ([]*module.Module, error) {
	matches, err := doublestar.Glob(f.root, f.spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", f.spec.Pattern, err)
	}

	byDir := make(map[string][]string)
	for _, match := range matches {
		if module.IsHidden(match) {
			continue
		}
		info, err := f.root.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		dir := path.Dir(match)
		if dir == "." {
			dir = ""
		}
		byDir[dir] = append(byDir[dir], path.Base(match))
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	modules := make([]*module.Module, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		names := byDir[dir]
		sort.Strings(names)

		def, err := readDefinition(f.root, dir)
		if err != nil {
			return nil, err
		}
		names, err = def.order(names)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", dir, err)
		}
		if len(names) == 0 {
			continue
		}

		m := module.New(dir, f.root)
		for _, name := range names {
			a, err := loadAsset(f.root, m.AssetPath(name), name)
			if err != nil {
				return nil, err
			}
			m.AddAsset(a)
		}
		modules = append(modules, m)
	}

	return modules, nil
}

func readDefinition(root fs.FS, dir string) (definition, error) {
	p := ModuleFileName
	if dir != "" {
		p = dir + "/" + ModuleFileName
	}
	data, err := fs.ReadFile(root, p)
	if errors.Is(err, fs.ErrNotExist) {
		return definition{}, nil
	}
	if err != nil {
		return definition{}, fmt.Errorf("read %s: %w", p, err)
	}
	def, err := parseDefinition(data)
	if err != nil {
		return definition{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return def, nil
}

var _ ports.ModuleFactory = (*DirectoryFactory)(nil)
