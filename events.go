package csv

// EventKind identifies the shape of one Event delivered to a Listener
// by the Parser.
type EventKind int

const (
	EventRecordBegin EventKind = iota
	EventField
	EventRecordEnd
	EventEnd
)

// Event is one step of parsing a document, delivered to a Listener in
// order: RecordBegin, then one Field per column, then RecordEnd,
// repeated per record, then a single End.
//
// Data is only valid for the duration of the OnEvent call that
// receives it: for an in-situ field it aliases the caller's input
// buffer, but for any field that required assembly (quote/escape
// processing, or a field spanning more than one Feed call) it aliases
// the Parser's internal field buffer, which is reused by the very next
// field. A Listener that needs the bytes afterward must copy them
// before returning.
type Event struct {
	Kind EventKind
	Data []byte
	// InSitu is true only when Data aliases the byte slice originally
	// passed to Feed, unmodified. A Listener combines this with its own
	// policy (e.g. ParseOptions.InSituMode) to decide whether to keep
	// referencing it or copy it somewhere durable.
	InSitu bool
	// Pos is the parser's position when the event is emitted: for a
	// Field, the delimiter or newline that ends it (or the end of
	// input); for a RecordEnd, just past the record's newline.
	Pos Position
	// StartPos is the position at the start of this event's content,
	// used by listeners that need to report an error at a specific
	// byte within a field (e.g. invalid UTF-8).
	StartPos Position
}

// Listener consumes the event stream produced by a Parser. Returning a
// non-nil error stops parsing; the error is returned from the Feed or
// Finish call that produced the offending event.
type Listener interface {
	OnEvent(Event) error
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(Event) error

func (f ListenerFunc) OnEvent(e Event) error { return f(e) }
