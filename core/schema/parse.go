package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative event class read from YAML.
type Definition struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`

	// ThingField names a payload field whose value must name a registered thing.
	ThingField string `yaml:"thing_field,omitempty"`

	Schema Fields `yaml:"schema"`

	// Source is the file the definition was read from.
	Source string `yaml:"-"`
}

// Validate checks a definition for structural errors.
func (d Definition) Validate() error {
	var errs []string
	if d.Name == "" {
		errs = append(errs, "name is required")
	}
	seen := make(map[string]bool, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		if dep == "" {
			errs = append(errs, "dependency names must not be empty")
			continue
		}
		if seen[dep] {
			errs = append(errs, fmt.Sprintf("duplicate dependency %q", dep))
		}
		seen[dep] = true
	}
	if d.ThingField != "" {
		if _, ok := d.Schema[d.ThingField]; !ok {
			errs = append(errs, fmt.Sprintf("thing_field %q is not a schema field", d.ThingField))
		}
	}
	if _, err := Compile(d.Schema); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseFields parses a bare field schema from YAML bytes.
func ParseFields(data []byte) (Fields, error) {
	var fields Fields
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return fields, nil
}

// ParseFile parses an event definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// Parse parses an event definition from YAML bytes.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("validate event %q: %w", def.Name, err)
	}

	return def, nil
}

// ParseDir parses all event definitions from a directory, including
// subdirectories, in lexical path order.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}
