package csv

// ParseTable parses the whole of data in one call, returning a fully
// built Table. It is the convenience entry point for callers that
// already have the entire document in memory; StreamingParse below is
// the incremental counterpart for callers feeding chunks as they
// arrive (over a network connection, for instance).
func ParseTable(data []byte, opts ParseOptions) (*Table, error) {
	input := data
	start := startPosition()
	if !opts.KeepBOM {
		if rest, stripped := stripBOM(input); stripped {
			input = rest
			// The 3 BOM bytes were consumed from data before scanning
			// ever begins; every Offset/Column this parse reports must
			// stay relative to the buffer the caller passed in, not the
			// stripped one.
			start.advanceBytes(3)
		}
	}
	opts.Limits = opts.Limits.withDefaults()

	b := newTableBuilder(opts)
	b.table.inputBuffer = input

	p := newParserAt(opts, b, start)
	if err := p.Feed(input); err != nil {
		b.table.Free()
		return nil, err
	}
	if err := p.Finish(); err != nil {
		b.table.Free()
		return nil, err
	}
	return b.table, nil
}

// StreamingParse wires a fresh Parser to a fresh tableBuilder and
// returns both: the Parser to Feed chunks into (and Finish when done),
// and a function that retrieves the Table built so far. Unlike
// ParseTable, it does not strip a BOM itself — the first chunk fed in
// is expected to already have been through stripBOM if the caller
// wants that behavior, since stripping a BOM that might straddle two
// chunks is the caller's concern, not the streaming entry point's.
func StreamingParse(opts ParseOptions) (*Parser, func() *Table) {
	opts.Limits = opts.Limits.withDefaults()
	b := newTableBuilder(opts)
	p := NewParser(opts, b)
	return p, func() *Table { return b.table }
}
