package module

import "fmt"

// Kind identifies a category of module (scripts, stylesheets, templates).
// The identifier doubles as the name of the kind's cache sub-directory.
type Kind string

// Known module kinds.
const (
	KindScript       Kind = "ScriptModule"
	KindStylesheet   Kind = "StylesheetModule"
	KindHTMLTemplate Kind = "HtmlTemplateModule"
)

// Kinds returns the built-in module kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{KindScript, KindStylesheet, KindHTMLTemplate}
}

// ParseKind resolves a kind identifier. Besides the canonical identifiers it
// accepts the short aliases used in configuration files ("scripts",
// "stylesheets", "templates").
func ParseKind(s string) (Kind, error) {
	switch s {
	case string(KindScript), "script", "scripts":
		return KindScript, nil
	case string(KindStylesheet), "stylesheet", "stylesheets":
		return KindStylesheet, nil
	case string(KindHTMLTemplate), "template", "templates", "html":
		return KindHTMLTemplate, nil
	}
	return "", fmt.Errorf("parse kind %q: %w", s, ErrUnknownKind)
}

// ResolveKind maps an alias to its built-in kind and returns any other
// identifier unchanged, so kinds registered by embedders stay addressable.
func ResolveKind(s string) Kind {
	if k, err := ParseKind(s); err == nil {
		return k
	}
	return Kind(s)
}

// String returns the kind identifier.
func (k Kind) String() string {
	return string(k)
}
