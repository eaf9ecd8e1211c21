package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// Document is a compiled JSON Schema document.
type Document map[string]any

// JSON encodes the document.
func (d Document) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

// Compile turns a field schema into a JSON Schema object document.
//
// Per-field required flags are hoisted into the object's "required" list,
// unknown properties are rejected, and nested object fields follow the same
// rules. Regular expressions are emitted as their source text.
func Compile(fields Fields) (Document, error) {
	doc, err := compileObject(fields, "")
	if err != nil {
		return nil, err
	}
	return Document(StringifyPatterns(doc).(map[string]any)), nil
}

func compileObject(fields Fields, path string) (map[string]any, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make(map[string]any, len(fields))
	var required []string
	for _, name := range names {
		f := fields[name]
		prop, err := compileField(f, path+"/"+name)
		if err != nil {
			return nil, err
		}
		props[name] = prop
		if f.Required {
			required = append(required, name)
		}
	}

	obj := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	return obj, nil
}

func compileField(f Field, path string) (map[string]any, error) {
	if !f.Type.Valid() {
		return nil, fmt.Errorf("field %s: unknown type %q", path, f.Type)
	}

	if f.Type == FieldTypeObject || len(f.Properties) > 0 {
		obj, err := compileObject(f.Properties, path)
		if err != nil {
			return nil, err
		}
		if f.Description != "" {
			obj["description"] = f.Description
		}
		for k, v := range f.Keywords {
			obj[k] = v
		}
		return obj, nil
	}

	doc := map[string]any{}
	isArray := false
	switch f.Type {
	case FieldTypeString:
		doc["type"] = "string"
	case FieldTypeInt:
		doc["type"] = "integer"
	case FieldTypeFloat:
		doc["type"] = "number"
	case FieldTypeBool:
		doc["type"] = "boolean"
	case FieldTypeTimestamp:
		doc["type"] = "string"
		doc["format"] = "date-time"
	case FieldTypeEmail:
		doc["type"] = "string"
		doc["format"] = "email"
	case FieldTypeURL:
		doc["type"] = "string"
		doc["format"] = "uri"
	case FieldTypeUUID:
		doc["type"] = "string"
		doc["format"] = "uuid"
	case FieldTypeEnum:
		if len(f.Values) == 0 {
			return nil, fmt.Errorf("field %s: enum requires values", path)
		}
		doc["type"] = "string"
	case FieldTypeStrings:
		isArray = true
		doc["type"] = "array"
		doc["items"] = map[string]any{"type": "string"}
	case FieldTypeInts:
		isArray = true
		doc["type"] = "array"
		doc["items"] = map[string]any{"type": "integer"}
	case FieldTypeArray:
		isArray = true
		doc["type"] = "array"
	}

	if f.Items != nil {
		items, err := compileField(*f.Items, path+"/items")
		if err != nil {
			return nil, err
		}
		isArray = true
		doc["type"] = "array"
		doc["items"] = items
	}
	if f.Format != "" {
		doc["format"] = f.Format
	}
	if len(f.Values) > 0 {
		values := make([]any, len(f.Values))
		for i, v := range f.Values {
			values[i] = v
		}
		doc["enum"] = values
	}
	if f.Description != "" {
		doc["description"] = f.Description
	}
	if f.Pattern != nil && f.Pattern.Regexp != nil {
		doc["pattern"] = f.Pattern
	}
	for _, c := range f.Constraints {
		if err := c.apply(doc, isArray); err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
	}
	for k, v := range f.Keywords {
		doc[k] = v
	}
	return doc, nil
}

// StringifyPatterns returns a copy of v in which every regular expression,
// at any depth of nested maps and slices, is replaced by its source text.
// Regular expressions are leaves: their internals are never descended into.
// v itself is not modified.
func StringifyPatterns(v any) any {
	switch t := v.(type) {
	case *regexp.Regexp:
		if t == nil {
			return nil
		}
		return t.String()
	case *Pattern:
		if t == nil || t.Regexp == nil {
			return nil
		}
		return t.String()
	case Pattern:
		if t.Regexp == nil {
			return nil
		}
		return t.String()
	case Document:
		return StringifyPatterns(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = StringifyPatterns(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StringifyPatterns(val)
		}
		return out
	default:
		return v
	}
}
