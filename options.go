package csv

// Default resource bounds (spec.md §4.3 "Limits"). Every bound is
// expressed as a count or byte size so a hostile or malformed input can
// only ever grow the parser's working state linearly in the bytes it
// has actually been fed, never unboundedly ahead of that.
const (
	DefaultMaxRows        = 10_000_000
	DefaultMaxCols        = 100_000
	DefaultMaxFieldBytes  = 16 * 1024 * 1024
	DefaultMaxRecordBytes = 64 * 1024 * 1024
	DefaultMaxTotalBytes  = 1024 * 1024 * 1024

	defaultContextRadius = 40
	defaultHeaderBuckets = 16
)

// MinWidth is the sentinel target for NormalizeRows meaning "shrink
// every row to the narrowest row currently present".
const MinWidth = -1

// Limits bounds the resources a single parse may consume. A zero value
// in any field means "use the package default" once withDefaults runs.
type Limits struct {
	MaxRows        int
	MaxCols        int
	MaxFieldBytes  int
	MaxRecordBytes int
	MaxTotalBytes  int
}

func (l Limits) withDefaults() Limits {
	if l.MaxRows == 0 {
		l.MaxRows = DefaultMaxRows
	}
	if l.MaxCols == 0 {
		l.MaxCols = DefaultMaxCols
	}
	if l.MaxFieldBytes == 0 {
		l.MaxFieldBytes = DefaultMaxFieldBytes
	}
	if l.MaxRecordBytes == 0 {
		l.MaxRecordBytes = DefaultMaxRecordBytes
	}
	if l.MaxTotalBytes == 0 {
		l.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return l
}

// ParseOptions configures one parse: the dialect, resource limits, and
// a handful of policy switches that affect how raw bytes become a
// Table rather than how the grammar itself is read.
type ParseOptions struct {
	Dialect Dialect

	// ValidateUTF8, when true, rejects a field whose bytes are not
	// valid UTF-8 with CodeInvalid. Per spec.md §4.4, enabling it also
	// disables in-situ field storage (validation and zero-copy views
	// are mutually exclusive in this design).
	ValidateUTF8 bool

	// InSituMode, when true, lets unmodified fields that fit within a
	// single Feed call reference the caller's input buffer directly
	// instead of being copied into the arena. The caller must keep
	// that buffer alive for as long as the resulting Table is used.
	InSituMode bool

	// KeepBOM, when false (the default), strips a leading UTF-8 BOM
	// before scanning begins.
	KeepBOM bool

	Limits Limits

	EnableContextSnippet bool
	ContextRadiusBytes   int

	RequireUniqueHeaders bool
	AllowIrregularRows   bool
}

// DefaultParseOptions returns the RFC 4180-flavored, strict-rectangle
// defaults. InSituMode is on, but so is ValidateUTF8, so fields are
// copied into the arena until ValidateUTF8 is turned off.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Dialect:              DefaultDialect(),
		ValidateUTF8:         true,
		InSituMode:           true,
		Limits:               Limits{}.withDefaults(),
		EnableContextSnippet: true,
		ContextRadiusBytes:   defaultContextRadius,
		RequireUniqueHeaders: true,
		AllowIrregularRows:   false,
	}
}

// WriteOptions configures how a Table (or a standalone stream of
// records) is rendered back to bytes.
type WriteOptions struct {
	Dialect Dialect

	// Newline is the literal byte sequence written after each record.
	Newline string

	QuoteAllFields     bool
	QuoteEmptyFields   bool
	QuoteIfNeeded      bool
	AlwaysEscapeQuotes bool

	TrailingNewline         bool
	TrimTrailingEmptyFields bool
}

// DefaultWriteOptions mirrors DefaultDialect: comma-delimited, quote
// only when a field's bytes require it, LF written after every record
// (the last one included), and TrailingNewline off, so no extra
// newline follows the last record.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Dialect:       DefaultDialect(),
		Newline:       "\n",
		QuoteIfNeeded: true,
	}
}
