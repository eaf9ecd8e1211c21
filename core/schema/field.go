package schema

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Fields maps payload field names to their descriptors.
type Fields map[string]Field

// Field describes one payload field of an event.
type Field struct {
	// Type is the field type. See FieldType constants. Empty accepts any value.
	Type FieldType `yaml:"type,omitempty"`

	// Required fields must be present in the payload.
	Required bool `yaml:"required,omitempty"`

	// Pattern restricts string values to a regular expression.
	Pattern *Pattern `yaml:"pattern,omitempty"`

	// Format names a JSON Schema format (e.g. "email", "date-time").
	Format string `yaml:"format,omitempty"`

	// Values lists valid values for enum fields.
	Values []string `yaml:"values,omitempty"`

	Description string `yaml:"description,omitempty"`

	// Properties describes the members of an object field.
	Properties Fields `yaml:"properties,omitempty"`

	// Items describes the elements of an array field.
	Items *Field `yaml:"items,omitempty"`

	Constraints []Constraint `yaml:"constraints,omitempty"`

	// Keywords are copied into the compiled document verbatim. Regular
	// expressions anywhere inside are serialized to their source text.
	Keywords map[string]any `yaml:"keywords,omitempty"`
}

// FieldType represents the type of a payload field.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeObject    FieldType = "object"
	FieldTypeArray     FieldType = "array"

	// Semantic types (string with format)
	FieldTypeEmail FieldType = "email"
	FieldTypeURL   FieldType = "url"
	FieldTypeUUID  FieldType = "uuid"

	FieldTypeEnum    FieldType = "enum"    // Requires Values
	FieldTypeStrings FieldType = "strings" // Array of strings
	FieldTypeInts    FieldType = "ints"    // Array of ints
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case "", FieldTypeString, FieldTypeInt, FieldTypeFloat, FieldTypeBool,
		FieldTypeTimestamp, FieldTypeObject, FieldTypeArray, FieldTypeEmail,
		FieldTypeURL, FieldTypeUUID, FieldTypeEnum, FieldTypeStrings, FieldTypeInts:
		return true
	}
	return false
}

// Pattern is a compiled regular expression that round-trips through YAML
// as its source text.
type Pattern struct {
	*regexp.Regexp
}

// NewPattern compiles expr.
func NewPattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{Regexp: re}, nil
}

// MustPattern is like NewPattern but panics on an invalid expression.
func MustPattern(expr string) *Pattern {
	return &Pattern{Regexp: regexp.MustCompile(expr)}
}

func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	var expr string
	if err := value.Decode(&expr); err != nil {
		return err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", expr, err)
	}
	p.Regexp = re
	return nil
}

func (p *Pattern) MarshalYAML() (any, error) {
	if p == nil || p.Regexp == nil {
		return nil, nil
	}
	return p.String(), nil
}
