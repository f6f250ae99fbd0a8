package csv

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Sink is the minimal destination a Writer needs: something that
// accepts bytes and can fail. BufferSink, FixedBufferSink, and
// CallbackSink cover the three shapes spec.md §4.6 calls for; GzipSink
// composes with any io.Writer-backed destination.
type Sink interface {
	Write(p []byte) error
}

// BufferSink accumulates every write into a growable in-memory buffer.
type BufferSink struct {
	buf []byte
}

func NewBufferSink() *BufferSink { return &BufferSink{} }

func (s *BufferSink) Write(p []byte) error {
	s.buf = append(s.buf, p...)
	return nil
}

func (s *BufferSink) Bytes() []byte { return s.buf }

// FixedBufferSink writes into a caller-supplied fixed-capacity buffer,
// silently discarding anything past capacity but remembering that it
// did so.
type FixedBufferSink struct {
	buf       []byte
	used      int
	truncated bool
}

func NewFixedBufferSink(capacity int) *FixedBufferSink {
	return &FixedBufferSink{buf: make([]byte, capacity)}
}

func (s *FixedBufferSink) Write(p []byte) error {
	if s.truncated {
		return nil
	}
	n := copy(s.buf[s.used:], p)
	s.used += n
	if n < len(p) {
		s.truncated = true
	}
	return nil
}

func (s *FixedBufferSink) Bytes() []byte   { return s.buf[:s.used] }
func (s *FixedBufferSink) Truncated() bool { return s.truncated }

// CallbackSink forwards each write to a caller-supplied function,
// useful for streaming straight to a socket or file without an
// intermediate buffer.
type CallbackSink struct {
	fn func([]byte) error
}

func NewCallbackSink(fn func([]byte) error) *CallbackSink { return &CallbackSink{fn: fn} }

func (s *CallbackSink) Write(p []byte) error { return s.fn(p) }

// GzipSink compresses every write before forwarding it to w, using
// klauspost/compress's gzip implementation (a drop-in for the stdlib
// package, faster on the encode path). Close must be called once
// writing is finished to flush the gzip trailer.
type GzipSink struct {
	gz *gzip.Writer
}

func NewGzipSink(w io.Writer) *GzipSink {
	return &GzipSink{gz: gzip.NewWriter(w)}
}

func (s *GzipSink) Write(p []byte) error {
	_, err := s.gz.Write(p)
	return err
}

func (s *GzipSink) Close() error { return s.gz.Close() }

// Writer renders Tables or standalone records to a Sink according to
// WriteOptions' dialect and quoting policy.
type Writer struct {
	sink Sink
	opts WriteOptions
}

func NewWriter(sink Sink, opts WriteOptions) *Writer {
	return &Writer{sink: sink, opts: opts}
}

// WriteTable writes every data row of t, and the header row too if
// includeHeader is true and t has one.
func (w *Writer) WriteTable(t *Table, includeHeader bool) error {
	for ri, row := range t.rows {
		if ri == 0 && t.hasHeader && !includeHeader {
			continue
		}
		if err := w.WriteRecord(fieldBytesOf(row.fields)); err != nil {
			return err
		}
	}
	if w.opts.TrailingNewline {
		return w.sink.Write([]byte(w.opts.Newline))
	}
	return nil
}

func fieldBytesOf(fields []Field) [][]byte {
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = f.data
	}
	return out
}

// WriteRecord writes one record: each field delimiter-separated,
// quoted per policy, followed by Newline.
func (w *Writer) WriteRecord(fields [][]byte) error {
	n := len(fields)
	if w.opts.TrimTrailingEmptyFields {
		for n > 0 && len(fields[n-1]) == 0 {
			n--
		}
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := w.sink.Write([]byte{w.opts.Dialect.Delimiter}); err != nil {
				return err
			}
		}
		if err := w.writeField(fields[i]); err != nil {
			return err
		}
	}
	return w.sink.Write([]byte(w.opts.Newline))
}

func (w *Writer) writeField(field []byte) error {
	if w.fieldNeedsQuote(field) {
		return w.writeQuoted(field)
	}
	return w.sink.Write(field)
}

func (w *Writer) fieldNeedsQuote(field []byte) bool {
	o := w.opts
	if o.QuoteAllFields {
		return true
	}
	if o.QuoteEmptyFields && len(field) == 0 {
		return true
	}
	if !o.QuoteIfNeeded && !o.AlwaysEscapeQuotes {
		return false
	}
	d := o.Dialect
	for _, b := range field {
		if o.AlwaysEscapeQuotes && b == d.Quote {
			return true
		}
		if !o.QuoteIfNeeded {
			continue
		}
		switch {
		case b == d.Delimiter, b == d.Quote:
			return true
		case b == '\n' && d.AcceptLF:
			return true
		case (b == '\r') && (d.AcceptCR || d.AcceptCRLF):
			return true
		}
	}
	return false
}

// writeQuoted wraps field in the dialect's quote character, escaping
// embedded quotes (and, under Backslash escaping, embedded backslashes
// too) per the dialect's Escape mode.
func (w *Writer) writeQuoted(field []byte) error {
	d := w.opts.Dialect
	if err := w.sink.Write([]byte{d.Quote}); err != nil {
		return err
	}
	last := 0
	for i := 0; i < len(field); i++ {
		b := field[i]
		special := b == d.Quote
		if d.Escape == EscapeBackslash && b == '\\' {
			special = true
		}
		if !special {
			continue
		}
		if err := w.sink.Write(field[last:i]); err != nil {
			return err
		}
		switch d.Escape {
		case EscapeDoubledQuote:
			if err := w.sink.Write([]byte{d.Quote, d.Quote}); err != nil {
				return err
			}
		case EscapeBackslash:
			if err := w.sink.Write([]byte{'\\', b}); err != nil {
				return err
			}
		case EscapeNone:
			if b == d.Quote {
				return invalidf("dialect has no escape mechanism for a quote character inside field %q", field)
			}
			if err := w.sink.Write([]byte{b}); err != nil {
				return err
			}
		}
		last = i + 1
	}
	if err := w.sink.Write(field[last:]); err != nil {
		return err
	}
	return w.sink.Write([]byte{d.Quote})
}

// StreamWriter is the record-at-a-time counterpart to Writer.WriteTable,
// for producing output incrementally without ever building a Table.
// BeginRecord/WriteField/EndRecord must balance; calling them out of
// order fails with CodeState.
type StreamWriter struct {
	w          *Writer
	recordOpen bool
	fieldIdx   int
}

func NewStreamWriter(sink Sink, opts WriteOptions) *StreamWriter {
	return &StreamWriter{w: NewWriter(sink, opts)}
}

func (sw *StreamWriter) BeginRecord() error {
	if sw.recordOpen {
		return newError(CodeState, "BeginRecord called with a record already open", Position{})
	}
	sw.recordOpen = true
	sw.fieldIdx = 0
	return nil
}

func (sw *StreamWriter) WriteField(data []byte) error {
	if !sw.recordOpen {
		return newError(CodeState, "WriteField called outside of a record", Position{})
	}
	if sw.fieldIdx > 0 {
		if err := sw.w.sink.Write([]byte{sw.w.opts.Dialect.Delimiter}); err != nil {
			return err
		}
	}
	sw.fieldIdx++
	return sw.w.writeField(data)
}

func (sw *StreamWriter) EndRecord() error {
	if !sw.recordOpen {
		return newError(CodeState, "EndRecord called with no open record", Position{})
	}
	sw.recordOpen = false
	return sw.w.sink.Write([]byte(sw.w.opts.Newline))
}

// Finish writes the trailing newline if configured. It fails with
// CodeState if a record is still open.
func (sw *StreamWriter) Finish() error {
	if sw.recordOpen {
		return newError(CodeState, "Finish called with an open record", Position{})
	}
	if sw.w.opts.TrailingNewline {
		return sw.w.sink.Write([]byte(sw.w.opts.Newline))
	}
	return nil
}
