package module

import "time"

// Asset is a single source unit (one script, stylesheet or template file)
// inside a module. Assets that hold releasable resources also implement
// io.Closer; Module.Close detects that per asset.
type Asset interface {
	// SourceFilename is the asset path relative to its module directory.
	SourceFilename() string

	// Accept calls v.VisitAsset with the asset itself.
	Accept(v Visitor)
}

// Visitor is the double-dispatch target of Module.Accept.
type Visitor interface {
	VisitModule(m *Module)
	VisitAsset(a Asset)
}

// VisitorFuncs adapts plain functions to Visitor. Nil fields are skipped.
type VisitorFuncs struct {
	Module func(m *Module)
	Asset  func(a Asset)
}

// VisitModule implements Visitor.
func (f VisitorFuncs) VisitModule(m *Module) {
	if f.Module != nil {
		f.Module(m)
	}
}

// VisitAsset implements Visitor.
func (f VisitorFuncs) VisitAsset(a Asset) {
	if f.Asset != nil {
		f.Asset(a)
	}
}

// SourceFile is a plain file asset (value type, no I/O). Cached modules are
// rebuilt from SourceFile values, and factory assets embed one.
type SourceFile struct {
	Filename    string
	Fingerprint string // hex digest of the content; empty when unknown
	Size        int64
	ModTime     time.Time
}

// SourceFilename implements Asset.
func (f *SourceFile) SourceFilename() string {
	return f.Filename
}

// Accept implements Asset.
func (f *SourceFile) Accept(v Visitor) {
	v.VisitAsset(f)
}

// File returns the file description itself.
func (f *SourceFile) File() SourceFile {
	return *f
}

// Describer is implemented by assets that carry a SourceFile description.
type Describer interface {
	File() SourceFile
}
