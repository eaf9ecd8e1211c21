package schema

import (
	"reflect"
	"regexp"
	"testing"
)

func TestCompile_HoistsRequired(t *testing.T) {
	doc, err := Compile(Fields{
		"name":  {Type: FieldTypeString, Required: true},
		"email": {Type: FieldTypeEmail, Required: true},
		"age":   {Type: FieldTypeInt},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if doc["type"] != "object" {
		t.Errorf("type = %v, want object", doc["type"])
	}
	if doc["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", doc["additionalProperties"])
	}
	want := []string{"email", "name"}
	if !reflect.DeepEqual(doc["required"], want) {
		t.Errorf("required = %v, want %v", doc["required"], want)
	}

	props := doc["properties"].(map[string]any)
	name := props["name"].(map[string]any)
	if _, ok := name["required"]; ok {
		t.Error("required flag should not remain on the property")
	}
	if name["type"] != "string" {
		t.Errorf("name.type = %v, want string", name["type"])
	}
	if props["age"].(map[string]any)["type"] != "integer" {
		t.Errorf("age.type = %v, want integer", props["age"])
	}
	if props["email"].(map[string]any)["format"] != "email" {
		t.Errorf("email.format = %v, want email", props["email"])
	}
}

func TestCompile_NoRequired(t *testing.T) {
	doc, err := Compile(Fields{"note": {Type: FieldTypeString}})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, ok := doc["required"]; ok {
		t.Error("required list should be omitted when nothing is required")
	}
}

func TestCompile_NestedObject(t *testing.T) {
	doc, err := Compile(Fields{
		"address": {
			Type:     FieldTypeObject,
			Required: true,
			Properties: Fields{
				"zip":  {Type: FieldTypeString, Required: true, Pattern: MustPattern(`^[0-9]{5}$`)},
				"city": {Type: FieldTypeString},
			},
		},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	addr := doc["properties"].(map[string]any)["address"].(map[string]any)
	if addr["additionalProperties"] != false {
		t.Error("nested object should reject unknown properties")
	}
	if !reflect.DeepEqual(addr["required"], []string{"zip"}) {
		t.Errorf("nested required = %v, want [zip]", addr["required"])
	}
	zip := addr["properties"].(map[string]any)["zip"].(map[string]any)
	if zip["pattern"] != `^[0-9]{5}$` {
		t.Errorf("zip.pattern = %#v, want source text", zip["pattern"])
	}
}

func TestCompile_Constraints(t *testing.T) {
	doc, err := Compile(Fields{
		"code": {Type: FieldTypeString, Constraints: []Constraint{
			{Type: ConstraintMinLength, Value: 2},
			{Type: ConstraintMaxLength, Value: 8},
			{Type: ConstraintPattern, Value: regexp.MustCompile(`^[A-Z]+$`)},
		}},
		"score": {Type: FieldTypeFloat, Constraints: []Constraint{
			{Type: ConstraintMin, Value: 0},
			{Type: ConstraintMax, Value: 1},
		}},
		"tags": {Type: FieldTypeStrings, Constraints: []Constraint{
			{Type: ConstraintMinLength, Value: 1},
		}},
		"status": {Type: FieldTypeEnum, Values: []string{"pass", "fail"}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	props := doc["properties"].(map[string]any)
	code := props["code"].(map[string]any)
	if code["minLength"] != 2 || code["maxLength"] != 8 || code["pattern"] != "^[A-Z]+$" {
		t.Errorf("code = %v", code)
	}
	score := props["score"].(map[string]any)
	if score["minimum"] != 0 || score["maximum"] != 1 {
		t.Errorf("score = %v", score)
	}
	if props["tags"].(map[string]any)["minItems"] != 1 {
		t.Errorf("tags = %v", props["tags"])
	}
	if !reflect.DeepEqual(props["status"].(map[string]any)["enum"], []any{"pass", "fail"}) {
		t.Errorf("status = %v", props["status"])
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
	}{
		{"unknown type", Fields{"x": {Type: "decimal"}}},
		{"enum without values", Fields{"x": {Type: FieldTypeEnum}}},
		{"unknown constraint", Fields{"x": {Type: FieldTypeString, Constraints: []Constraint{{Type: "ref_exists"}}}}},
		{"bad pattern", Fields{"x": {Type: FieldTypeString, Constraints: []Constraint{{Type: ConstraintPattern, Value: "("}}}}},
		{"nested unknown type", Fields{"o": {Type: FieldTypeObject, Properties: Fields{"y": {Type: "nope"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.fields); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStringifyPatterns(t *testing.T) {
	re := regexp.MustCompile(`^a+$`)
	in := map[string]any{
		"pattern": re,
		"nested": map[string]any{
			"list":  []any{MustPattern(`b`), "plain", 3},
			"deep":  map[string]any{"p": Pattern{Regexp: regexp.MustCompile(`c`)}},
			"other": true,
		},
	}

	got := StringifyPatterns(in).(map[string]any)

	if got["pattern"] != "^a+$" {
		t.Errorf("pattern = %#v", got["pattern"])
	}
	nested := got["nested"].(map[string]any)
	if !reflect.DeepEqual(nested["list"], []any{"b", "plain", 3}) {
		t.Errorf("list = %#v", nested["list"])
	}
	if nested["deep"].(map[string]any)["p"] != "c" {
		t.Errorf("deep = %#v", nested["deep"])
	}
	if nested["other"] != true {
		t.Errorf("other = %#v", nested["other"])
	}

	// input untouched
	if in["pattern"] != re {
		t.Error("input map was modified")
	}
}

func TestCompile_KeywordsPatternsStringified(t *testing.T) {
	doc, err := Compile(Fields{
		"meta": {Keywords: map[string]any{
			"patternProperties": map[string]any{
				"^x-": map[string]any{"pattern": regexp.MustCompile(`^v[0-9]$`)},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	meta := doc["properties"].(map[string]any)["meta"].(map[string]any)
	inner := meta["patternProperties"].(map[string]any)["^x-"].(map[string]any)
	if inner["pattern"] != "^v[0-9]$" {
		t.Errorf("pattern = %#v, want source text", inner["pattern"])
	}
}
