package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	events := filepath.Join(dir, "events")
	if err := os.Mkdir(events, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	def := "name: vendor.reviewed\ndependencies: [journal]\nschema:\n  vendor:\n    type: string\n    required: true\n"
	if err := os.WriteFile(filepath.Join(events, "vendor.yaml"), []byte(def), 0644); err != nil {
		t.Fatalf("write event: %v", err)
	}
	cfg := "journal:\n  enabled: true\n  path: " + filepath.Join(dir, "j.db") + "\nevents:\n  dir: " + events + "\n"
	path := filepath.Join(dir, "brane.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan", "-c", writeConfig(t))
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1. logger\n  2. journal") {
		t.Errorf("unexpected start order:\n%s", out)
	}
	if !strings.Contains(out, "logger -> [journal]") {
		t.Errorf("dependants listing missing:\n%s", out)
	}
	if !strings.Contains(out, "vendor.reviewed <- [journal]") {
		t.Errorf("event listing missing:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "-c", writeConfig(t))
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Modules: 2") || !strings.Contains(out, "Events:  1") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestValidateCommand_UnknownDependency(t *testing.T) {
	path := writeConfig(t)
	data, _ := os.ReadFile(path)
	data = bytes.Replace(data, []byte("enabled: true"), []byte("enabled: false"), 1)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	out, err := execute(t, "validate", "-c", path)
	if err == nil {
		t.Fatalf("expected error, output:\n%s", out)
	}
	if !strings.Contains(out, crossMark+" Dependency plan") {
		t.Errorf("plan failure not reported:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "brane dev") {
		t.Errorf("output = %q", out)
	}
}
