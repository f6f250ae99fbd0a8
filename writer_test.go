package csv

import "testing"

func TestWriteRecordQuotesWhenNeeded(t *testing.T) {
	sink := NewBufferSink()
	w := NewWriter(sink, DefaultWriteOptions())
	if err := w.WriteRecord([][]byte{[]byte("plain"), []byte("has,comma"), []byte(`has"quote`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(sink.Bytes())
	want := "plain,\"has,comma\",\"has\"\"quote\"\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteRecordQuoteAllFields(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.QuoteAllFields = true
	w := NewWriter(sink, opts)
	if err := w.WriteRecord([][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink.Bytes()); got != "\"a\",\"b\"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteRecordQuoteEmptyFields(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.QuoteEmptyFields = true
	w := NewWriter(sink, opts)
	if err := w.WriteRecord([][]byte{[]byte(""), []byte("b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink.Bytes()); got != "\"\",b\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteRecordAlwaysEscapeQuotes(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.QuoteIfNeeded = false
	opts.AlwaysEscapeQuotes = true
	w := NewWriter(sink, opts)
	if err := w.WriteRecord([][]byte{[]byte(`a"b`), []byte("plain")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(sink.Bytes())
	want := "\"a\"\"b\",plain\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteRecordEscapeNoneFailsOnEmbeddedQuote(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.Dialect.Escape = EscapeNone
	w := NewWriter(sink, opts)
	err := w.WriteRecord([][]byte{[]byte(`has"quote`)})
	if err == nil {
		t.Fatal("expected an error")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Code != CodeInvalid {
		t.Fatalf("got %#v", err)
	}
}

func TestWriteRecordBackslashEscape(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.Dialect.Escape = EscapeBackslash
	w := NewWriter(sink, opts)
	if err := w.WriteRecord([][]byte{[]byte(`a\b"c`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(sink.Bytes())
	want := "\"a\\\\b\\\"c\"\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteRecordTrimTrailingEmptyFields(t *testing.T) {
	sink := NewBufferSink()
	opts := DefaultWriteOptions()
	opts.TrimTrailingEmptyFields = true
	w := NewWriter(sink, opts)
	if err := w.WriteRecord([][]byte{[]byte("a"), []byte(""), []byte("")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink.Bytes()); got != "a\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteTableSkipsHeaderUnlessIncluded(t *testing.T) {
	opts := DefaultParseOptions()
	table, err := NewTableWithHeaders([][]byte{[]byte("a"), []byte("b")}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer table.Free()
	if err := table.RowAppend([][]byte{[]byte("1"), []byte("2")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink := NewBufferSink()
	w := NewWriter(sink, DefaultWriteOptions())
	if err := w.WriteTable(table, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink.Bytes()); got != "1,2\n" {
		t.Fatalf("got %q", got)
	}

	sink2 := NewBufferSink()
	w2 := NewWriter(sink2, DefaultWriteOptions())
	if err := w2.WriteTable(table, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink2.Bytes()); got != "a,b\n1,2\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFixedBufferSinkTruncation(t *testing.T) {
	sink := NewFixedBufferSink(4)
	if err := sink.Write([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sink.Truncated() {
		t.Fatal("expected truncation to be reported")
	}
	if string(sink.Bytes()) != "hell" {
		t.Fatalf("got %q", sink.Bytes())
	}
}

func TestStreamWriterBalancesRecords(t *testing.T) {
	sink := NewBufferSink()
	sw := NewStreamWriter(sink, DefaultWriteOptions())

	if err := sw.BeginRecord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.WriteField([]byte("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.WriteField([]byte("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.EndRecord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(sink.Bytes()); got != "a,b\n" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamWriterRejectsImbalancedCalls(t *testing.T) {
	sink := NewBufferSink()
	sw := NewStreamWriter(sink, DefaultWriteOptions())

	if err := sw.WriteField([]byte("a")); err == nil {
		t.Fatal("expected an error writing a field outside a record")
	}
	if err := sw.BeginRecord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.BeginRecord(); err == nil {
		t.Fatal("expected an error beginning a record twice")
	}
	if err := sw.Finish(); err == nil {
		t.Fatal("expected an error finishing with an open record")
	}
}
