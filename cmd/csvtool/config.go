package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	csv "github.com/arcrecord/tablecsv"
)

// DialectPreset is the YAML shape of one named preset: the subset of
// csv.Dialect a user is likely to want to name instead of re-specifying
// as flags on every invocation.
type DialectPreset struct {
	Delimiter             string `yaml:"delimiter"`
	Quote                 string `yaml:"quote"`
	Escape                string `yaml:"escape"`
	AcceptCR              bool   `yaml:"accept_cr"`
	TrimUnquotedFields    bool   `yaml:"trim_unquoted_fields"`
	AllowComments         bool   `yaml:"allow_comments"`
	CommentPrefix         string `yaml:"comment_prefix"`
	TreatFirstRowAsHeader bool   `yaml:"treat_first_row_as_header"`
}

// presetFile is the top-level shape of a --config file.
type presetFile struct {
	Presets map[string]DialectPreset `yaml:"presets"`
}

func builtinPresets() map[string]DialectPreset {
	return map[string]DialectPreset{
		"default": {Delimiter: ",", Quote: "\"", Escape: "doubled"},
		"excel":   {Delimiter: ",", Quote: "\"", Escape: "doubled"},
		"tsv":     {Delimiter: "\t", Quote: "\"", Escape: "doubled"},
		"postgres-copy": {
			Delimiter: "\t",
			Quote:     "\"",
			Escape:    "backslash",
		},
	}
}

// loadPresets merges the built-in presets with whatever path (if
// non-empty) provides; path's entries win on name collision.
func loadPresets(path string) (map[string]DialectPreset, error) {
	presets := builtinPresets()
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading preset file: %w", err)
	}
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing preset file: %w", err)
	}
	for name, preset := range file.Presets {
		presets[name] = preset
	}
	return presets, nil
}

// resolveDialect turns a named preset into a csv.Dialect, starting from
// csv.DefaultDialect and overlaying the preset's fields.
func resolveDialect(presets map[string]DialectPreset, name string) (csv.Dialect, error) {
	preset, ok := presets[name]
	if !ok {
		return csv.Dialect{}, fmt.Errorf("unknown dialect preset %q", name)
	}
	d := csv.DefaultDialect()
	if preset.Delimiter != "" {
		d.Delimiter = preset.Delimiter[0]
	}
	if preset.Quote != "" {
		d.Quote = preset.Quote[0]
	}
	switch preset.Escape {
	case "", "doubled":
		d.Escape = csv.EscapeDoubledQuote
	case "backslash":
		d.Escape = csv.EscapeBackslash
	case "none":
		d.Escape = csv.EscapeNone
	default:
		return csv.Dialect{}, fmt.Errorf("unknown escape mode %q", preset.Escape)
	}
	d.AcceptCR = preset.AcceptCR
	d.TrimUnquotedFields = preset.TrimUnquotedFields
	d.AllowComments = preset.AllowComments
	if preset.CommentPrefix != "" {
		d.CommentPrefix = []byte(preset.CommentPrefix)
	}
	d.TreatFirstRowAsHeader = preset.TreatFirstRowAsHeader
	return d, nil
}
