package module

import "github.com/hashicorp/go-multierror"

// Container is the realized collection of all modules of one kind.
type Container struct {
	kind    Kind
	modules []*Module
}

// NewContainer creates a container holding modules in the given order.
func NewContainer(kind Kind, modules ...*Module) *Container {
	return &Container{kind: kind, modules: modules}
}

// Kind returns the kind of every module in the container.
func (c *Container) Kind() Kind {
	return c.kind
}

// Modules returns the modules in order.
func (c *Container) Modules() []*Module {
	out := make([]*Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Len returns the number of modules.
func (c *Container) Len() int {
	return len(c.modules)
}

// FindModule returns the first module containing path.
func (c *Container) FindModule(path string) (*Module, bool) {
	for _, m := range c.modules {
		if m.ContainsPath(path) {
			return m, true
		}
	}
	return nil, false
}

// Accept visits every module, in order.
func (c *Container) Accept(v Visitor) {
	for _, m := range c.modules {
		m.Accept(v)
	}
}

// Close releases every module, aggregating failures.
func (c *Container) Close() error {
	var result *multierror.Error
	for _, m := range c.modules {
		if err := m.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
