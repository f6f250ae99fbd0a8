package csv

// Field is one cell's bytes. A Field never owns its own memory: data
// either aliases the caller's input buffer (inSitu) or a span inside
// the Table's arena. Rows hold Fields by value; only the arena and the
// (optional) retained input buffer are actually responsible for
// keeping the bytes alive.
type Field struct {
	data   []byte
	inSitu bool
}

var emptySentinel = []byte{}

func emptyField() Field { return Field{data: emptySentinel} }

// Bytes returns the field's raw bytes. The returned slice must not be
// modified; it may alias arena or input-buffer storage shared with
// other fields.
func (f Field) Bytes() []byte { return f.data }

// String copies the field's bytes into a new Go string.
func (f Field) String() string { return string(f.data) }

// InSitu reports whether this field's bytes alias the original input
// buffer rather than the Table's own arena.
func (f Field) InSitu() bool { return f.inSitu }

// Row is one record: a flat slice of Fields. Rows do not own the bytes
// behind their fields; the Table's arena (or, for in-situ fields, the
// caller's retained input buffer) does.
type Row struct {
	fields []Field
}

func (r Row) Width() int       { return len(r.fields) }
func (r Row) Field(i int) Field { return r.fields[i] }

// Table is an in-memory CSV document: a header map over column names
// (optional), a sequence of rows, and the arena backing every copied
// field and header name.
//
// A Table obtained with InSituMode enabled may hold Fields that alias
// the byte slice originally handed to ParseTable (or fed to a Parser
// whose events a builder collected). That slice must remain valid,
// unmodified, for as long as the Table is used; Free (or garbage
// collection) does not change that contract, it only releases the
// Table's own arena.
type Table struct {
	arena       *Arena
	inputBuffer []byte

	rows []Row

	columnCount int
	hasHeader   bool
	header      *headerMap

	requireUniqueHeaders bool
	allowIrregularRows   bool
}

func newEmptyTable(opts ParseOptions) *Table {
	return &Table{
		arena:                newArena(0),
		requireUniqueHeaders: opts.RequireUniqueHeaders,
		allowIrregularRows:   opts.AllowIrregularRows,
	}
}

// NewTable creates an empty, headerless table governed by opts'
// RequireUniqueHeaders/AllowIrregularRows policy.
func NewTable(opts ParseOptions) *Table {
	return newEmptyTable(opts)
}

// NewTableWithHeaders creates a table whose header row is names,
// applying opts.Dialect.HeaderDupMode to any repeats.
func NewTableWithHeaders(names [][]byte, opts ParseOptions) (*Table, error) {
	t := newEmptyTable(opts)
	fields := make([]Field, len(names))
	for i, n := range names {
		if len(n) == 0 {
			fields[i] = emptyField()
			continue
		}
		buf, ok := t.arena.alloc(len(n), 1)
		if !ok {
			return nil, oomf("arena allocation failed building header row")
		}
		copy(buf, n)
		fields[i] = Field{data: buf}
	}
	t.rows = append(t.rows, Row{fields: fields})
	t.columnCount = len(names)
	t.hasHeader = true
	if err := t.buildHeaderFromRow0(opts.Dialect.HeaderDupMode); err != nil {
		return nil, err
	}
	return t, nil
}

// Free releases the Table's arena in bulk. After Free the Table must
// not be used; any in-situ fields are unaffected since they never
// belonged to this arena in the first place.
func (t *Table) Free() {
	t.arena.freeAll()
	t.rows = nil
	t.header = nil
}

func (t *Table) headerOffset() int {
	if t.hasHeader {
		return 1
	}
	return 0
}

func (t *Table) dataRowCount() int { return len(t.rows) - t.headerOffset() }

// RowCount is the number of data rows, excluding the header row if
// present.
func (t *Table) RowCount() int { return t.dataRowCount() }

// ColumnCount is the table's current width: the common row width in
// strict mode, or the widest row seen in irregular mode.
func (t *Table) ColumnCount() int { return t.columnCount }

func (t *Table) HasHeader() bool { return t.hasHeader }

// RequireUniqueHeaders reports the table's current duplicate-header
// policy for mutating operations that add or rename columns.
func (t *Table) RequireUniqueHeaders() bool { return t.requireUniqueHeaders }

// SetRequireUniqueHeaders changes the policy applied by future column
// mutations; it does not retroactively validate existing headers.
func (t *Table) SetRequireUniqueHeaders(v bool) { t.requireUniqueHeaders = v }

func (t *Table) AllowIrregularRows() bool { return t.allowIrregularRows }

func (t *Table) SetAllowIrregularRows(v bool) { t.allowIrregularRows = v }

// Row returns the data row at rowIdx (0-based, header row excluded).
func (t *Table) Row(rowIdx int) (Row, bool) {
	if rowIdx < 0 || rowIdx >= t.dataRowCount() {
		return Row{}, false
	}
	return t.rows[rowIdx+t.headerOffset()], true
}

// RowWidth returns the width of the data row at rowIdx.
func (t *Table) RowWidth(rowIdx int) (int, bool) {
	r, ok := t.Row(rowIdx)
	if !ok {
		return 0, false
	}
	return r.Width(), true
}

// FieldBytes returns the raw bytes of one cell.
func (t *Table) FieldBytes(rowIdx, colIdx int) ([]byte, bool) {
	r, ok := t.Row(rowIdx)
	if !ok || colIdx < 0 || colIdx >= len(r.fields) {
		return nil, false
	}
	return r.fields[colIdx].data, true
}

// Field copies the bytes of one cell into a new string.
func (t *Table) Field(rowIdx, colIdx int) (string, bool) {
	b, ok := t.FieldBytes(rowIdx, colIdx)
	if !ok {
		return "", false
	}
	return string(b), true
}

// HeaderName returns the name bound to column colIdx, or false if the
// table has no header or the column has no bound name (possible under
// HeaderDupFirstWins).
func (t *Table) HeaderName(colIdx int) (string, bool) {
	if !t.hasHeader || t.header == nil {
		return "", false
	}
	e := t.header.entryAt(colIdx)
	if e == nil {
		return "", false
	}
	return string(e.name), true
}

// HeaderIndex returns the lowest column index bound to name.
func (t *Table) HeaderIndex(name []byte) (int, bool) {
	if !t.hasHeader || t.header == nil {
		return 0, false
	}
	e := t.header.lookupNext(name, -1)
	if e == nil {
		return 0, false
	}
	return e.columnIndex, true
}

// HeaderIndexNext returns the next column index bound to name, strictly
// greater than current, for walking repeated header names left to
// right.
func (t *Table) HeaderIndexNext(name []byte, current int) (int, bool) {
	if !t.hasHeader || t.header == nil {
		return 0, false
	}
	e := t.header.lookupNext(name, current)
	if e == nil {
		return 0, false
	}
	return e.columnIndex, true
}

// appendParsedRow is used only by the builder while constructing a
// table from parser events: it establishes columnCount from the first
// row seen and then enforces (or, in irregular mode, tracks) width.
func (t *Table) appendParsedRow(row Row) error {
	if len(t.rows) == 0 {
		t.columnCount = len(row.fields)
	} else if !t.allowIrregularRows && len(row.fields) != t.columnCount {
		return invalidf("expected %d fields, got %d", t.columnCount, len(row.fields))
	} else if t.allowIrregularRows && len(row.fields) > t.columnCount {
		t.columnCount = len(row.fields)
	}
	t.rows = append(t.rows, row)
	return nil
}

// buildHeaderFromRow0 constructs the header map from the current
// rows[0], applying dupMode to repeated names. Arena allocation
// failures surface as CodeOOM.
func (t *Table) buildHeaderFromRow0(dupMode HeaderDupMode) error {
	row0 := t.rows[0]
	t.header = newHeaderMap(defaultHeaderBuckets)
	for i, f := range row0.fields {
		if existing := t.header.lookupFirst(f.data); existing != nil {
			switch dupMode {
			case HeaderDupError:
				return invalidf("duplicate header %q at column %d", f.data, i)
			case HeaderDupFirstWins:
				continue
			case HeaderDupLastWins:
				t.header.remove(existing)
			case HeaderDupCollect:
				// fall through: insert an additional entry for this name
			}
		}
		var nameCopy []byte
		if len(f.data) == 0 {
			nameCopy = emptySentinel
		} else {
			buf, ok := t.arena.alloc(len(f.data), 1)
			if !ok {
				return oomf("arena allocation failed building header map")
			}
			copy(buf, f.data)
			nameCopy = buf
		}
		t.header.insert(&headerEntry{name: nameCopy, columnIndex: i})
	}
	return nil
}

func (t *Table) maxRowWidth() int {
	m := 0
	for _, r := range t.rows {
		if len(r.fields) > m {
			m = len(r.fields)
		}
	}
	return m
}

func (t *Table) minRowWidth() int {
	if len(t.rows) == 0 {
		return 0
	}
	m := len(t.rows[0].fields)
	for _, r := range t.rows[1:] {
		if len(r.fields) < m {
			m = len(r.fields)
		}
	}
	return m
}

func (t *Table) recomputeColumnCountMax() {
	t.columnCount = t.maxRowWidth()
}

func (t *Table) estimateByteSize() int {
	size := 0
	for _, r := range t.rows {
		for _, f := range r.fields {
			size += len(f.data)
		}
	}
	if t.header != nil {
		for _, bucket := range t.header.buckets {
			for e := bucket; e != nil; e = e.next {
				size += len(e.name)
			}
		}
	}
	return size
}
