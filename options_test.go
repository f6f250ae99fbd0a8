package csv

import "testing"

func TestLimitsWithDefaultsFillsZeroFields(t *testing.T) {
	l := Limits{MaxRows: 5}.withDefaults()
	if l.MaxRows != 5 {
		t.Fatalf("expected explicit MaxRows to survive, got %d", l.MaxRows)
	}
	if l.MaxCols != DefaultMaxCols {
		t.Fatalf("expected default MaxCols, got %d", l.MaxCols)
	}
	if l.MaxFieldBytes != DefaultMaxFieldBytes {
		t.Fatalf("expected default MaxFieldBytes, got %d", l.MaxFieldBytes)
	}
}

func TestDefaultParseOptionsAreInternallyConsistent(t *testing.T) {
	opts := DefaultParseOptions()
	if !opts.Dialect.AcceptLF {
		t.Fatal("expected default dialect to accept LF")
	}
	if opts.Limits.MaxRows != DefaultMaxRows {
		t.Fatalf("got %d", opts.Limits.MaxRows)
	}
}
