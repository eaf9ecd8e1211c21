package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	yaml := `
name: control.assessed
description: A control was assessed
dependencies: [journal, logger]
thing_field: control

schema:
  control: { type: string, required: true, pattern: "^CC-[0-9]+$" }
  status:  { type: enum, values: [pass, fail], required: true }
  notes:   { type: string, constraints: [{ type: max_length, value: 200 }] }
`

	def, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if def.Name != "control.assessed" {
		t.Errorf("Name = %q, want %q", def.Name, "control.assessed")
	}
	if len(def.Dependencies) != 2 || def.Dependencies[0] != "journal" {
		t.Errorf("Dependencies = %v", def.Dependencies)
	}
	if len(def.Schema) != 3 {
		t.Errorf("Schema has %d fields, want 3", len(def.Schema))
	}

	control := def.Schema["control"]
	if !control.Required {
		t.Error("control should be required")
	}
	if control.Pattern == nil || !control.Pattern.MatchString("CC-12") {
		t.Error("control pattern should be compiled from YAML")
	}
	if control.Pattern.MatchString("XX-1") {
		t.Error("control pattern should reject XX-1")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "schema: {}", "name is required"},
		{"bad pattern", "name: e\nschema:\n  x: { type: string, pattern: \"(\" }", "pattern"},
		{"unknown thing field", "name: e\nthing_field: t\nschema: {}", "thing_field"},
		{"duplicate dependency", "name: e\ndependencies: [a, a]\nschema: {}", "duplicate dependency"},
		{"unknown type", "name: e\nschema:\n  x: { type: decimal }", "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]byte("id: { type: uuid, required: true }\n"))
	if err != nil {
		t.Fatalf("ParseFields failed: %v", err)
	}
	if fields["id"].Type != FieldTypeUUID || !fields["id"].Required {
		t.Errorf("id = %+v", fields["id"])
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.yaml", "name: second\nschema: {}\n")
	write("a.yml", "name: first\nschema: {}\n")
	write("nested/c.yaml", "name: third\nschema: {}\n")
	write("README.md", "ignored")

	defs, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}
	names := []string{defs[0].Name, defs[1].Name, defs[2].Name}
	want := []string{"first", "second", "third"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}
	if defs[0].Source != filepath.Join(dir, "a.yml") {
		t.Errorf("Source = %q", defs[0].Source)
	}
}
