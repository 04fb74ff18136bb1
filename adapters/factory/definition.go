package factory

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// definition is the content of a module.yaml file.
type definition struct {
	Assets  []string `yaml:"assets"`
	Exclude []string `yaml:"exclude"`
}

func parseDefinition(data []byte) (definition, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return definition{}, err
	}
	for _, pattern := range def.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return definition{}, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return def, nil
}

// order applies the definition to the lexically sorted file names: excluded
// names are dropped, listed names come first in listed order, the rest
// follow. Listing a file that does not exist is an error.
func (d definition) order(names []string) ([]string, error) {
	kept := make([]string, 0, len(names))
	present := make(map[string]bool, len(names))
	for _, name := range names {
		if d.excluded(name) {
			continue
		}
		kept = append(kept, name)
		present[name] = true
	}

	if len(d.Assets) == 0 {
		return kept, nil
	}

	out := make([]string, 0, len(kept))
	listed := make(map[string]bool, len(d.Assets))
	for _, name := range d.Assets {
		if listed[name] {
			continue
		}
		if !present[name] {
			return nil, fmt.Errorf("listed asset %q not found", name)
		}
		listed[name] = true
		out = append(out, name)
	}
	for _, name := range kept {
		if !listed[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func (d definition) excluded(name string) bool {
	for _, pattern := range d.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
