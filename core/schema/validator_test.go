package schema

import (
	"errors"
	"strings"
	"testing"
)

func buildValidator(t *testing.T, fields Fields) Validator {
	t.Helper()
	v, _, err := Build(NewJSONSchema(), "test.event", fields)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return v
}

func TestJSONSchema_Valid(t *testing.T) {
	v := buildValidator(t, Fields{
		"name":  {Type: FieldTypeString, Required: true, Pattern: MustPattern(`^[a-z]+$`)},
		"age":   {Type: FieldTypeInt},
		"tags":  {Type: FieldTypeStrings},
		"score": {Type: FieldTypeFloat},
	})

	payloads := []map[string]any{
		{"name": "alice"},
		{"name": "bob", "age": 42, "tags": []string{"a", "b"}, "score": 0.5},
		{"name": "carol", "age": int64(7)},
	}
	for _, p := range payloads {
		if err := v(p); err != nil {
			t.Errorf("payload %v rejected: %v", p, err)
		}
	}
}

func TestJSONSchema_MissingRequired(t *testing.T) {
	v := buildValidator(t, Fields{"name": {Type: FieldTypeString, Required: true}})

	err := v(map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error %q should mention the missing field", err.Error())
	}
}

func TestJSONSchema_UnknownField(t *testing.T) {
	v := buildValidator(t, Fields{"name": {Type: FieldTypeString}})

	err := v(map[string]any{"name": "x", "extra": 1})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "extra") {
		t.Errorf("error %q should mention the unknown field", err.Error())
	}
}

func TestJSONSchema_AggregatesErrors(t *testing.T) {
	v := buildValidator(t, Fields{
		"name": {Type: FieldTypeString, Required: true},
		"age":  {Type: FieldTypeInt},
		"code": {Type: FieldTypeString, Pattern: MustPattern(`^[A-Z]{3}$`)},
	})

	err := v(map[string]any{"age": "old", "code": "abc"})
	if err == nil {
		t.Fatal("expected error")
	}
	ve := err.(*ValidationError)
	if len(ve.Errors) < 3 {
		t.Errorf("got %d errors, want at least 3: %v", len(ve.Errors), ve.Errors)
	}
	msg := err.Error()
	for _, want := range []string{"/age", "/code", "name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
	if !strings.Contains(msg, "; ") {
		t.Errorf("errors should be joined with '; ': %q", msg)
	}
}

func TestJSONSchema_NilPayload(t *testing.T) {
	v := buildValidator(t, Fields{"note": {Type: FieldTypeString}})
	if err := v(nil); err != nil {
		t.Errorf("nil payload with no required fields should pass: %v", err)
	}
}

func TestJSONSchema_Nested(t *testing.T) {
	v := buildValidator(t, Fields{
		"address": {Type: FieldTypeObject, Required: true, Properties: Fields{
			"zip": {Type: FieldTypeString, Required: true},
		}},
	})

	if err := v(map[string]any{"address": map[string]any{"zip": "12345"}}); err != nil {
		t.Errorf("valid nested payload rejected: %v", err)
	}
	if err := v(map[string]any{"address": map[string]string{"zip": "1", "street": "x"}}); err == nil {
		t.Error("unknown nested field should be rejected")
	}
	if err := v(map[string]any{"address": map[string]any{}}); err == nil {
		t.Error("missing nested required field should be rejected")
	}
}

func TestCompilerFunc(t *testing.T) {
	called := ""
	c := CompilerFunc(func(name string, doc Document) (Validator, error) {
		called = name
		return func(map[string]any) error { return nil }, nil
	})
	if _, _, err := Build(c, "custom", Fields{}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if called != "custom" {
		t.Errorf("compiler called with %q, want custom", called)
	}
}
