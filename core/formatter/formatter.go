// Package formatter renders command output as table, json or yaml.
// Formatters receive records with an explicit column order so every format
// shows the same fields.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Formatter converts records to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records.
	FormatList(w io.Writer, list List, opts FormatOptions) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, record Record, opts FormatOptions) error
}

// List is a named, ordered set of records sharing the same columns.
type List struct {
	Name    string
	Columns []string
	Records []map[string]any
}

// Record is a single named record.
type Record struct {
	Name    string
	Columns []string
	Values  map[string]any
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json only).
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates an empty registry whose default is "table".
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name. An empty name selects the default.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultFmt
	}
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, r.names())
	}
	return f, nil
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns a registry holding the table, json and yaml formatters.
func Defaults() *Registry {
	r := NewRegistry()
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// pick copies the listed columns of a record, in a map suitable for the
// structured encoders.
func pick(columns []string, values map[string]any) map[string]any {
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		out[col] = values[col]
	}
	return out
}

func pickAll(columns []string, records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, pick(columns, r))
	}
	return out
}
