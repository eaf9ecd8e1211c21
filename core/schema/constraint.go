// Package schema compiles event field schemas into JSON Schema documents and
// validators. Field declarations are YAML friendly; validation itself is
// delegated to a JSON Schema engine.
package schema

import (
	"fmt"
	"regexp"
)

// Constraint defines an additional validation rule for a field.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex, list of values).
	Value any `yaml:"value" json:"value"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	ConstraintMin       ConstraintType = "min"
	ConstraintMax       ConstraintType = "max"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty" // String must contain a non-space character
	ConstraintOneOf     ConstraintType = "one_of"
)

// apply writes the JSON Schema keywords for c into doc.
func (c Constraint) apply(doc map[string]any, isArray bool) error {
	switch c.Type {
	case ConstraintMin:
		doc["minimum"] = c.Value
	case ConstraintMax:
		doc["maximum"] = c.Value
	case ConstraintMinLength:
		if isArray {
			doc["minItems"] = c.Value
		} else {
			doc["minLength"] = c.Value
		}
	case ConstraintMaxLength:
		if isArray {
			doc["maxItems"] = c.Value
		} else {
			doc["maxLength"] = c.Value
		}
	case ConstraintPattern:
		switch v := c.Value.(type) {
		case string:
			if _, err := regexp.Compile(v); err != nil {
				return fmt.Errorf("pattern %q: %w", v, err)
			}
			doc["pattern"] = v
		case *regexp.Regexp, *Pattern:
			doc["pattern"] = v
		default:
			return fmt.Errorf("pattern constraint needs a string or regexp, got %T", c.Value)
		}
	case ConstraintNotEmpty:
		doc["minLength"] = 1
		doc["pattern"] = `\S`
	case ConstraintOneOf:
		values, ok := c.Value.([]any)
		if !ok {
			if ss, isStrings := c.Value.([]string); isStrings {
				for _, s := range ss {
					values = append(values, s)
				}
				ok = true
			}
		}
		if !ok {
			return fmt.Errorf("one_of constraint needs a list, got %T", c.Value)
		}
		doc["enum"] = values
	default:
		return fmt.Errorf("unknown constraint type %q", c.Type)
	}
	return nil
}
