package csv

// tableBuilder is a Listener that assembles parser events into a
// Table. It owns the in-situ/arena classification decision described
// in spec.md §4.4: a field is kept as a zero-copy view only when the
// caller asked for in-situ mode, UTF-8 validation is off, and the
// event actually aliases the original input (i.e. the field neither
// needed quote/escape processing nor spanned a Feed call boundary).
type tableBuilder struct {
	table *Table
	opts  ParseOptions

	currentRow []Field
	err        error
}

func newTableBuilder(opts ParseOptions) *tableBuilder {
	return &tableBuilder{
		table: newEmptyTable(opts),
		opts:  opts,
	}
}

func (b *tableBuilder) OnEvent(ev Event) error {
	switch ev.Kind {
	case EventRecordBegin:
		b.currentRow = b.currentRow[:0]
	case EventField:
		f, err := b.classifyField(ev)
		if err != nil {
			return err
		}
		b.currentRow = append(b.currentRow, f)
	case EventRecordEnd:
		if len(b.currentRow) == 0 {
			return nil
		}
		row := Row{fields: append([]Field(nil), b.currentRow...)}
		return b.table.appendParsedRow(row)
	case EventEnd:
		return b.finalize()
	}
	return nil
}

func (b *tableBuilder) classifyField(ev Event) (Field, error) {
	if len(ev.Data) == 0 {
		return emptyField(), nil
	}
	if b.opts.ValidateUTF8 {
		if ok, bad := validateUTF8(ev.Data); !ok {
			pos := ev.StartPos
			pos.Offset += bad
			pos.Column += bad
			return Field{}, newError(CodeInvalid, "invalid UTF-8 byte sequence in field", pos)
		}
	}
	if b.opts.InSituMode && !b.opts.ValidateUTF8 && ev.InSitu {
		return Field{data: ev.Data, inSitu: true}, nil
	}
	buf, ok := b.table.arena.alloc(len(ev.Data), 1)
	if !ok {
		return Field{}, oomf("arena allocation failed for field")
	}
	copy(buf, ev.Data)
	return Field{data: buf}, nil
}

func (b *tableBuilder) finalize() error {
	if len(b.table.rows) == 0 {
		return nil
	}
	if b.opts.Dialect.TreatFirstRowAsHeader {
		b.table.hasHeader = true
		if err := b.table.buildHeaderFromRow0(b.opts.Dialect.HeaderDupMode); err != nil {
			return err
		}
	}
	if b.opts.AllowIrregularRows {
		b.table.recomputeColumnCountMax()
	}
	return nil
}
