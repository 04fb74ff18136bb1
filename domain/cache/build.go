package cache

import (
	"io/fs"
	"time"

	"github.com/artpar/cassette/domain/module"
)

// BuildParams contains the inputs for building a manifest.
type BuildParams struct {
	Kind        module.Kind
	Generation  string
	CreatedAt   time.Time
	Stat        StatFunc
	Directories []string // source directories to record, root excluded

	// DefinitionFile names the per-directory definition file. Existing
	// copies in the root and in Directories are recorded.
	DefinitionFile string
	Modules        []*module.Module
}

// Build describes modules as a manifest. Modules and assets are walked with
// the module visitor; assets carrying a module.SourceFile description keep
// their fingerprint, the rest are described by stat alone.
func Build(p BuildParams) Manifest {
	m := Manifest{
		Kind:        p.Kind,
		Generation:  p.Generation,
		CreatedAt:   p.CreatedAt,
		RootModTime: p.Stat(".").ModTime,
		Directories: make([]DirEntry, 0, len(p.Directories)),
		Modules:     make([]ModuleEntry, 0, len(p.Modules)),
	}

	for _, dir := range p.Directories {
		m.Directories = append(m.Directories, DirEntry{Path: dir, ModTime: p.Stat(dir).ModTime})
	}

	if p.DefinitionFile != "" {
		m.Definitions = []FileEntry{}
		for _, dir := range append([]string{""}, p.Directories...) {
			name := p.DefinitionFile
			if dir != "" {
				name = dir + "/" + name
			}
			// Missing definitions need no record: creating one changes the
			// modification time of its directory.
			if st := p.Stat(name); st.Exists && !st.IsDir {
				m.Definitions = append(m.Definitions, FileEntry{Path: name, Size: st.Size, ModTime: st.ModTime})
			}
		}
	}

	for _, mod := range p.Modules {
		dir := mod.Directory()
		statDir := module.NormalizePath(dir)
		if statDir == "" {
			statDir = "."
		}
		entry := ModuleEntry{
			Directory: module.NormalizePath(dir),
			ModTime:   p.Stat(statDir).ModTime,
			Assets:    []AssetEntry{},
		}

		mod.Accept(module.VisitorFuncs{
			Asset: func(a module.Asset) {
				ae := AssetEntry{SourceFilename: module.NormalizePath(a.SourceFilename())}
				if d, ok := a.(module.Describer); ok {
					f := d.File()
					ae.Fingerprint = f.Fingerprint
				}
				st := p.Stat(mod.AssetPath(a.SourceFilename()))
				ae.Size = st.Size
				ae.ModTime = st.ModTime
				entry.Assets = append(entry.Assets, ae)
			},
		})

		m.Modules = append(m.Modules, entry)
	}

	return m
}

// Restore rebuilds modules from a manifest, resolving them against fsys.
// Assets are plain module.SourceFile values.
func Restore(m Manifest, fsys fs.FS) []*module.Module {
	modules := make([]*module.Module, 0, len(m.Modules))
	for _, e := range m.Modules {
		mod := module.New(e.Directory, fsys)
		for _, a := range e.Assets {
			mod.AddAsset(&module.SourceFile{
				Filename:    a.SourceFilename,
				Fingerprint: a.Fingerprint,
				Size:        a.Size,
				ModTime:     a.ModTime,
			})
		}
		modules = append(modules, mod)
	}
	return modules
}
