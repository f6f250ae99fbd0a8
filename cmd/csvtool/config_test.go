package main

import (
	"os"
	"path/filepath"
	"testing"

	csv "github.com/arcrecord/tablecsv"
)

func TestBuiltinPresetsCoverNamedDialects(t *testing.T) {
	presets := builtinPresets()
	for _, name := range []string{"default", "excel", "tsv", "postgres-copy"} {
		if _, ok := presets[name]; !ok {
			t.Fatalf("expected builtin preset %q", name)
		}
	}
}

func TestResolveDialectTSV(t *testing.T) {
	presets := builtinPresets()
	d, err := resolveDialect(presets, "tsv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Delimiter != '\t' {
		t.Fatalf("expected tab delimiter, got %q", d.Delimiter)
	}
	if d.Escape != csv.EscapeDoubledQuote {
		t.Fatalf("expected doubled-quote escape by default")
	}
}

func TestResolveDialectPostgresCopyUsesBackslashEscape(t *testing.T) {
	presets := builtinPresets()
	d, err := resolveDialect(presets, "postgres-copy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Escape != csv.EscapeBackslash {
		t.Fatalf("expected backslash escape, got %v", d.Escape)
	}
}

func TestResolveDialectUnknownNameErrors(t *testing.T) {
	presets := builtinPresets()
	if _, err := resolveDialect(presets, "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown preset name")
	}
}

func TestResolveDialectUnknownEscapeErrors(t *testing.T) {
	presets := map[string]DialectPreset{"bad": {Delimiter: ",", Escape: "rot13"}}
	if _, err := resolveDialect(presets, "bad"); err == nil {
		t.Fatal("expected an error for an unrecognized escape mode")
	}
}

func TestLoadPresetsMergesFileOverBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	contents := "presets:\n  custom:\n    delimiter: \";\"\n  tsv:\n    delimiter: \"|\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	presets, err := loadPresets(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if presets["custom"].Delimiter != ";" {
		t.Fatalf("expected custom preset to be loaded, got %+v", presets["custom"])
	}
	if presets["tsv"].Delimiter != "|" {
		t.Fatalf("expected file to override builtin tsv preset, got %+v", presets["tsv"])
	}
	if _, ok := presets["default"]; !ok {
		t.Fatal("expected untouched builtin presets to survive the merge")
	}
}

func TestLoadPresetsEmptyPathReturnsBuiltinsOnly(t *testing.T) {
	presets, err := loadPresets("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(presets) != len(builtinPresets()) {
		t.Fatalf("expected only builtins, got %d entries", len(presets))
	}
}

func TestLoadPresetsMissingFileErrors(t *testing.T) {
	if _, err := loadPresets("/nonexistent/path/presets.yaml"); err == nil {
		t.Fatal("expected an error for a missing preset file")
	}
}
