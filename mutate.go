package csv

// This file implements the mutation algebra from spec.md §4.5. Every
// operation follows the same three-phase shape: validate bounds and
// width against current policy, perform every fallible arena
// allocation the operation needs, and only then touch the Table's
// observable state. A failure in the first two phases leaves the
// Table completely unchanged; nothing here calls the arena after the
// point where a caller could see a partially applied mutation.

func (t *Table) publicRowBounds(rowIdx int) bool {
	return rowIdx >= 0 && rowIdx <= t.dataRowCount()
}

func (t *Table) existingRowBounds(rowIdx int) bool {
	return rowIdx >= 0 && rowIdx < t.dataRowCount()
}

// allocFields copies values into freshly arena-allocated Fields. It
// performs every allocation before returning, so a failure partway
// through never leaves the Table touched by the caller.
func (t *Table) allocFields(values [][]byte) ([]Field, error) {
	fields := make([]Field, len(values))
	for i, v := range values {
		if len(v) == 0 {
			fields[i] = emptyField()
			continue
		}
		buf, ok := t.arena.alloc(len(v), 1)
		if !ok {
			return nil, oomf("arena allocation failed for row field %d", i)
		}
		copy(buf, v)
		fields[i] = Field{data: buf}
	}
	return fields, nil
}

func insertRowAt(rows []Row, internalIdx int, row Row) []Row {
	rows = append(rows, Row{})
	copy(rows[internalIdx+1:], rows[internalIdx:])
	rows[internalIdx] = row
	return rows
}

func insertFieldAt(fields []Field, idx int, f Field) []Field {
	fields = append(fields, Field{})
	copy(fields[idx+1:], fields[idx:])
	fields[idx] = f
	return fields
}

// rowInsertAt is shared by RowAppend (idx == dataRowCount()) and
// RowInsert.
func (t *Table) rowInsertAt(rowIdx int, values [][]byte) error {
	if !t.publicRowBounds(rowIdx) {
		return invalidf("row index %d out of bounds [0,%d]", rowIdx, t.dataRowCount())
	}
	width := len(values)
	if len(t.rows) > 0 && !t.allowIrregularRows && width != t.columnCount {
		return invalidf("expected %d fields, got %d", t.columnCount, width)
	}
	fields, err := t.allocFields(values)
	if err != nil {
		return err
	}
	internalIdx := rowIdx + t.headerOffset()
	t.rows = insertRowAt(t.rows, internalIdx, Row{fields: fields})
	if len(t.rows) == 1 {
		t.columnCount = width
	} else if t.allowIrregularRows && width > t.columnCount {
		t.columnCount = width
	}
	return nil
}

// RowAppend adds a new data row at the end of the table.
func (t *Table) RowAppend(values [][]byte) error {
	return t.rowInsertAt(t.dataRowCount(), values)
}

// RowInsert adds a new data row before rowIdx (rowIdx == RowCount()
// appends).
func (t *Table) RowInsert(rowIdx int, values [][]byte) error {
	return t.rowInsertAt(rowIdx, values)
}

// RowRemove deletes the data row at rowIdx.
func (t *Table) RowRemove(rowIdx int) error {
	if !t.existingRowBounds(rowIdx) {
		return invalidf("row index %d out of bounds [0,%d)", rowIdx, t.dataRowCount())
	}
	internalIdx := rowIdx + t.headerOffset()
	removedWidth := len(t.rows[internalIdx].fields)
	t.rows = append(t.rows[:internalIdx], t.rows[internalIdx+1:]...)
	if t.allowIrregularRows && removedWidth == t.columnCount {
		t.recomputeColumnCountMax()
	}
	return nil
}

// RowSet replaces every field in the data row at rowIdx.
func (t *Table) RowSet(rowIdx int, values [][]byte) error {
	if !t.existingRowBounds(rowIdx) {
		return invalidf("row index %d out of bounds [0,%d)", rowIdx, t.dataRowCount())
	}
	width := len(values)
	if !t.allowIrregularRows && width != t.columnCount {
		return invalidf("expected %d fields, got %d", t.columnCount, width)
	}
	fields, err := t.allocFields(values)
	if err != nil {
		return err
	}
	internalIdx := rowIdx + t.headerOffset()
	oldWidth := len(t.rows[internalIdx].fields)
	t.rows[internalIdx] = Row{fields: fields}
	if t.allowIrregularRows {
		if width > t.columnCount {
			t.columnCount = width
		} else if oldWidth == t.columnCount && width < oldWidth {
			t.recomputeColumnCountMax()
		}
	}
	return nil
}

// FieldSet replaces one cell. The new bytes are always copied into the
// arena, even if the field they replace was in-situ.
func (t *Table) FieldSet(rowIdx, colIdx int, value []byte) error {
	if !t.existingRowBounds(rowIdx) {
		return invalidf("row index %d out of bounds [0,%d)", rowIdx, t.dataRowCount())
	}
	internalIdx := rowIdx + t.headerOffset()
	row := &t.rows[internalIdx]
	if colIdx < 0 || colIdx >= len(row.fields) {
		return invalidf("column index %d out of bounds [0,%d)", colIdx, len(row.fields))
	}
	if len(value) == 0 {
		row.fields[colIdx] = emptyField()
		return nil
	}
	buf, ok := t.arena.alloc(len(value), 1)
	if !ok {
		return oomf("arena allocation failed for field_set")
	}
	copy(buf, value)
	row.fields[colIdx] = Field{data: buf}
	return nil
}

// columnInsertAt is shared by ColumnAppend(WithValues) and
// ColumnInsert(WithValues).
func (t *Table) columnInsertAt(colIdx int, name []byte, values [][]byte) error {
	if colIdx < 0 || colIdx > t.columnCount {
		return invalidf("column index %d out of bounds [0,%d]", colIdx, t.columnCount)
	}
	if name != nil && t.hasHeader && t.requireUniqueHeaders && t.header != nil {
		if t.header.lookupFirst(name) != nil {
			return invalidf("duplicate header %q", name)
		}
	}
	dataRows := t.dataRowCount()
	if values != nil && len(values) != dataRows {
		return invalidf("expected %d values, got %d", dataRows, len(values))
	}

	newDataFields := make([]Field, dataRows)
	for i := 0; i < dataRows; i++ {
		var v []byte
		if values != nil {
			v = values[i]
		}
		if len(v) == 0 {
			newDataFields[i] = emptyField()
			continue
		}
		buf, ok := t.arena.alloc(len(v), 1)
		if !ok {
			return oomf("arena allocation failed for column_insert value %d", i)
		}
		copy(buf, v)
		newDataFields[i] = Field{data: buf}
	}

	var headerNameCopy []byte = emptySentinel
	if t.hasHeader {
		if len(name) > 0 {
			buf, ok := t.arena.alloc(len(name), 1)
			if !ok {
				return oomf("arena allocation failed for column_insert header name")
			}
			copy(buf, name)
			headerNameCopy = buf
		}
	}

	dataI := 0
	for ri := range t.rows {
		row := &t.rows[ri]
		if t.allowIrregularRows && len(row.fields) < colIdx {
			pad := make([]Field, colIdx-len(row.fields))
			for k := range pad {
				pad[k] = emptyField()
			}
			row.fields = append(row.fields, pad...)
		}
		var f Field
		if t.hasHeader && ri == 0 {
			f = Field{data: headerNameCopy}
		} else {
			f = newDataFields[dataI]
			dataI++
		}
		row.fields = insertFieldAt(row.fields, colIdx, f)
	}

	if t.hasHeader && t.header != nil {
		t.header.bumpIndicesFrom(colIdx, 1)
		if name != nil {
			t.header.insert(&headerEntry{name: headerNameCopy, columnIndex: colIdx})
		}
	}
	t.columnCount++
	return nil
}

func (t *Table) ColumnAppend(name []byte) error {
	return t.columnInsertAt(t.columnCount, name, nil)
}

func (t *Table) ColumnAppendWithValues(name []byte, values [][]byte) error {
	return t.columnInsertAt(t.columnCount, name, values)
}

func (t *Table) ColumnInsert(colIdx int, name []byte) error {
	return t.columnInsertAt(colIdx, name, nil)
}

func (t *Table) ColumnInsertWithValues(colIdx int, name []byte, values [][]byte) error {
	return t.columnInsertAt(colIdx, name, values)
}

// ColumnRemove deletes column colIdx from every row and, if present,
// its header entry, renumbering the entries to its right.
func (t *Table) ColumnRemove(colIdx int) error {
	if colIdx < 0 || colIdx >= t.columnCount {
		return invalidf("column index %d out of bounds [0,%d)", colIdx, t.columnCount)
	}
	for ri := range t.rows {
		row := &t.rows[ri]
		if colIdx < len(row.fields) {
			row.fields = append(row.fields[:colIdx], row.fields[colIdx+1:]...)
		}
	}
	if t.hasHeader && t.header != nil {
		if e := t.header.entryAt(colIdx); e != nil {
			t.header.remove(e)
		}
		t.header.bumpIndicesFrom(colIdx+1, -1)
	}
	t.columnCount--
	if t.allowIrregularRows {
		t.recomputeColumnCountMax()
	}
	return nil
}

// ColumnRename changes the header name bound to colIdx. It fails if
// the table has no header, or if newName collides with another
// column under RequireUniqueHeaders.
func (t *Table) ColumnRename(colIdx int, newName []byte) error {
	if !t.hasHeader || t.header == nil {
		return invalidf("table has no header row")
	}
	if colIdx < 0 || colIdx >= t.columnCount {
		return invalidf("column index %d out of bounds [0,%d)", colIdx, t.columnCount)
	}
	if t.requireUniqueHeaders {
		if existing := t.header.lookupFirst(newName); existing != nil && existing.columnIndex != colIdx {
			return invalidf("duplicate header %q", newName)
		}
	}
	var nameCopy []byte = emptySentinel
	if len(newName) > 0 {
		buf, ok := t.arena.alloc(len(newName), 1)
		if !ok {
			return oomf("arena allocation failed for column_rename")
		}
		copy(buf, newName)
		nameCopy = buf
	}
	if old := t.header.entryAt(colIdx); old != nil {
		t.header.remove(old)
	}
	t.header.insert(&headerEntry{name: nameCopy, columnIndex: colIdx})
	if len(t.rows) > 0 {
		t.rows[0].fields[colIdx] = Field{data: nameCopy}
	}
	return nil
}

// NormalizeRows pads or truncates every row to a common width: target
// itself if positive, the widest row if target == 0, or the narrowest
// row if target == MinWidth. If truncateLong is false, any row wider
// than the resulting width fails the whole operation with INVALID
// instead of being truncated.
func (t *Table) NormalizeRows(target int, truncateLong bool) error {
	if len(t.rows) == 0 {
		return nil
	}
	width := target
	switch target {
	case 0:
		width = t.maxRowWidth()
	case MinWidth:
		width = t.minRowWidth()
	}
	if width < 0 {
		return invalidf("normalize target %d is invalid", target)
	}
	if !truncateLong {
		for i, row := range t.rows {
			if len(row.fields) > width {
				return invalidf("row %d has %d fields, exceeding normalize width %d", i, len(row.fields), width)
			}
		}
	}
	for ri := range t.rows {
		row := &t.rows[ri]
		switch {
		case len(row.fields) > width:
			row.fields = row.fields[:width]
		case len(row.fields) < width:
			pad := make([]Field, width-len(row.fields))
			for k := range pad {
				pad[k] = emptyField()
			}
			row.fields = append(row.fields, pad...)
		}
	}
	t.columnCount = width
	return nil
}

func (t *Table) copyFieldInto(a *Arena, f Field) (Field, bool) {
	if len(f.data) == 0 {
		return emptyField(), true
	}
	if f.inSitu && t.inputBuffer != nil {
		return f, true
	}
	buf, ok := a.alloc(len(f.data), 1)
	if !ok {
		return Field{}, false
	}
	copy(buf, f.data)
	return Field{data: buf}, true
}

// Compact rebuilds the table's arena from scratch, dropping any
// garbage left behind by prior mutations (removed rows/columns,
// overwritten fields). In-situ fields are preserved as-is when the
// table's input buffer is still attached; everything else is
// deep-copied into the new arena. Compact either fully succeeds or
// leaves the table completely untouched.
func (t *Table) Compact() error {
	size := t.estimateByteSize()
	newSize := size + size/10
	if newSize < 1024 {
		newSize = 1024
	}
	newArena := newArena(newSize)

	newRows := make([]Row, len(t.rows))
	for ri, row := range t.rows {
		newFields := make([]Field, len(row.fields))
		for fi, f := range row.fields {
			nf, ok := t.copyFieldInto(newArena, f)
			if !ok {
				return oomf("arena allocation failed during compact")
			}
			newFields[fi] = nf
		}
		newRows[ri] = Row{fields: newFields}
	}

	var newHeader *headerMap
	if t.hasHeader && t.header != nil {
		newHeader = newHeaderMap(len(t.header.buckets))
		for _, bucket := range t.header.buckets {
			for e := bucket; e != nil; e = e.next {
				buf, ok := newArena.alloc(maxLen1(len(e.name)), 1)
				if len(e.name) == 0 {
					buf = emptySentinel
				} else if !ok {
					return oomf("arena allocation failed for header during compact")
				} else {
					copy(buf, e.name)
				}
				newHeader.insert(&headerEntry{name: buf, columnIndex: e.columnIndex})
			}
		}
	}

	t.arena = newArena
	t.rows = newRows
	t.header = newHeader
	return nil
}

func maxLen1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Clone produces an independent Table with its own arena: every field
// is deep-copied, including fields that were in-situ in the source,
// so the clone never depends on the source's input buffer.
func (t *Table) Clone() (*Table, error) {
	size := t.estimateByteSize()
	newSize := size + size/10
	if newSize < 1024 {
		newSize = 1024
	}
	newArena := newArena(newSize)

	nt := &Table{
		arena:                newArena,
		columnCount:          t.columnCount,
		hasHeader:            t.hasHeader,
		requireUniqueHeaders: t.requireUniqueHeaders,
		allowIrregularRows:   t.allowIrregularRows,
	}
	nt.rows = make([]Row, len(t.rows))
	for ri, row := range t.rows {
		nf := make([]Field, len(row.fields))
		for fi, f := range row.fields {
			if len(f.data) == 0 {
				nf[fi] = emptyField()
				continue
			}
			buf, ok := newArena.alloc(len(f.data), 1)
			if !ok {
				return nil, oomf("arena allocation failed during clone")
			}
			copy(buf, f.data)
			nf[fi] = Field{data: buf}
		}
		nt.rows[ri] = Row{fields: nf}
	}
	if t.hasHeader && t.header != nil {
		nt.header = newHeaderMap(len(t.header.buckets))
		for _, bucket := range t.header.buckets {
			for e := bucket; e != nil; e = e.next {
				var buf []byte = emptySentinel
				if len(e.name) > 0 {
					b, ok := newArena.alloc(len(e.name), 1)
					if !ok {
						return nil, oomf("arena allocation failed for header during clone")
					}
					copy(b, e.name)
					buf = b
				}
				nt.header.insert(&headerEntry{name: buf, columnIndex: e.columnIndex})
			}
		}
	}
	return nt, nil
}

// Clear removes every data row, keeping the header row (if any) and
// the table's policies intact, then compacts the arena. If Compact
// fails, the row removal is rolled back and the table is left exactly
// as it was.
func (t *Table) Clear() error {
	saved := t.rows
	if t.hasHeader && len(t.rows) > 0 {
		t.rows = t.rows[:1:1]
	} else {
		t.rows = t.rows[:0:0]
	}
	if err := t.Compact(); err != nil {
		t.rows = saved
		return err
	}
	return nil
}
