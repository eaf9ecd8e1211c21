package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks a payload. It returns a *ValidationError describing every
// violation, or nil.
type Validator func(payload map[string]any) error

// Compiler turns a compiled document into a Validator.
type Compiler interface {
	Compile(name string, doc Document) (Validator, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(name string, doc Document) (Validator, error)

func (f CompilerFunc) Compile(name string, doc Document) (Validator, error) {
	return f(name, doc)
}

// FieldError is a single validation failure. Path is a JSON pointer into the
// payload, empty for the payload root.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError aggregates every failure of one validation pass.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// Error returns a combined error message.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.String())
	}
	return strings.Join(msgs, "; ")
}

// JSONSchema compiles documents with a JSON Schema (draft 7) engine.
type JSONSchema struct{}

// NewJSONSchema returns the default Compiler.
func NewJSONSchema() JSONSchema { return JSONSchema{} }

// Compile implements Compiler.
func (JSONSchema) Compile(name string, doc Document) (Validator, error) {
	raw, err := doc.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	c.AssertFormat = true
	const url = "event.json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return func(payload map[string]any) error {
		v, err := normalize(payload)
		if err != nil {
			return &ValidationError{Errors: []FieldError{{Message: err.Error()}}}
		}
		if err := sch.Validate(v); err != nil {
			return aggregate(err)
		}
		return nil
	}, nil
}

// normalize converts payload into the generic JSON value shapes the engine
// understands (map[string]any, []any, json.Number, ...).
func normalize(payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not JSON encodable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func aggregate(err error) *ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Errors: []FieldError{{Message: err.Error()}}}
	}
	out := &ValidationError{}
	collectLeaves(ve, out)
	if len(out.Errors) == 0 {
		out.Errors = append(out.Errors, FieldError{Path: ve.InstanceLocation, Message: ve.Message})
	}
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *ValidationError) {
	if len(ve.Causes) == 0 {
		out.Errors = append(out.Errors, FieldError{Path: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// Build compiles fields with c into a Validator.
func Build(c Compiler, name string, fields Fields) (Validator, Document, error) {
	doc, err := Compile(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("schema %s: %w", name, err)
	}
	v, err := c.Compile(name, doc)
	if err != nil {
		return nil, nil, err
	}
	return v, doc, nil
}
