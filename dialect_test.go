package csv

import "testing"

func TestTSVDialectOnlyChangesDelimiter(t *testing.T) {
	d := TSVDialect()
	c := DefaultDialect()
	if d.Delimiter != '\t' {
		t.Fatalf("expected tab delimiter, got %q", d.Delimiter)
	}
	if d.Quote != c.Quote || d.Escape != c.Escape {
		t.Fatal("expected TSVDialect to inherit the rest of DefaultDialect")
	}
}

func TestDefaultDialectAcceptsLFAndCRLF(t *testing.T) {
	d := DefaultDialect()
	if !d.AcceptLF || !d.AcceptCRLF || d.AcceptCR {
		t.Fatalf("got %+v", d)
	}
}
