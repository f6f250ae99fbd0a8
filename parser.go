package csv

// parserState is one of the eight states in the streaming tokenizer's
// transition table (spec.md §4.3).
type parserState int

const (
	stateStartOfRecord parserState = iota
	stateStartOfField
	stateUnquotedField
	stateQuotedField
	stateQuoteInQuoted
	stateEscapeInQuoted
	stateComment
	stateEnd
)

// Parser drives the dialect's grammar over a sequence of byte chunks
// fed via Feed, emitting Events to a Listener as it goes. It never
// buffers an entire document: a field that does not fit within a
// single Feed call is copied into a parser-owned growable buffer, and
// a handful of bytes of genuinely ambiguous lookahead (a lone '\r'
// that might start a CRLF, or a partially matched comment prefix) are
// held in a small separate carry buffer until the next chunk arrives.
type Parser struct {
	opts     ParseOptions
	listener Listener

	state parserState
	pos   Position

	// carry holds bytes the parser has seen but not yet decided how to
	// treat, pending more input. It is logically unconsumed: Offset/
	// Line/Column have not been advanced past it.
	carry []byte

	// Per-field assembly state.
	fieldStart    int
	fieldStartPos Position
	copiedUpto    int
	needsCopy     bool
	fieldBuffer   []byte
	fieldRawLen   int

	// pendingQuoteIdx records the index (within the current data slice)
	// of a quote byte seen while quoted, whose role (escape vs closing)
	// is not yet known.
	pendingQuoteIdx int

	totalBytesConsumed int
	currentRecordBytes int
	fieldCountInRecord int
	rowsStarted        int

	done bool
	err  error
}

// NewParser creates a Parser that will deliver events to listener
// according to opts.Dialect and opts.Limits.
func NewParser(opts ParseOptions, listener Listener) *Parser {
	return newParserAt(opts, listener, startPosition())
}

// newParserAt is NewParser with an explicit starting position, for
// callers (ParseTable) that strip leading bytes (a BOM) ahead of the
// first Feed call and need every subsequent Offset/Line/Column
// reported relative to the buffer the caller actually handed in, not
// the stripped one.
func newParserAt(opts ParseOptions, listener Listener, start Position) *Parser {
	opts.Limits = opts.Limits.withDefaults()
	return &Parser{
		opts:     opts,
		listener: listener,
		state:    stateStartOfRecord,
		pos:      start,
	}
}

// Position reports the parser's current byte offset/line/column.
func (p *Parser) Position() Position { return p.pos }

func (p *Parser) isMidField() bool {
	switch p.state {
	case stateUnquotedField, stateQuotedField, stateQuoteInQuoted, stateEscapeInQuoted:
		return true
	default:
		return false
	}
}

// Feed processes one chunk of input. It may be called any number of
// times; a field that straddles two calls is assembled correctly
// either way.
func (p *Parser) Feed(chunk []byte) error {
	if p.done {
		return p.err
	}
	windowStart := p.pos.Offset
	data := chunk
	if len(p.carry) > 0 {
		combined := make([]byte, 0, len(p.carry)+len(chunk))
		combined = append(combined, p.carry...)
		combined = append(combined, chunk...)
		data = combined
		p.carry = p.carry[:0]
	}
	if p.isMidField() {
		p.fieldStart = 0
		p.copiedUpto = 0
		if p.state == stateQuoteInQuoted {
			p.pendingQuoteIdx = 0
		}
	}
	if err := p.run(data); err != nil {
		err = p.attachSnippet(err, data, windowStart)
		p.fail(err)
		return err
	}
	return nil
}

// attachSnippet populates err's Snippet from window, whose byte 0 sits
// at the absolute offset windowStart, centered on err's own Offset,
// when context snippets are enabled and that offset actually falls
// within window. Carry bytes are never counted into Offset, so
// windowStart is always p.pos.Offset as captured at the top of the
// Feed call that produced err, before carry and chunk were combined.
func (p *Parser) attachSnippet(err error, window []byte, windowStart int) error {
	if !p.opts.EnableContextSnippet {
		return err
	}
	ce, ok := err.(*Error)
	if !ok || ce.Snippet != nil {
		return err
	}
	local := ce.Offset - windowStart
	if local < 0 || local > len(window) {
		return err
	}
	ce.Snippet = buildSnippet(window, local, p.snippetRadius())
	return err
}

func (p *Parser) snippetRadius() int {
	if p.opts.ContextRadiusBytes > 0 {
		return p.opts.ContextRadiusBytes
	}
	return defaultContextRadius
}

// Finish signals end of input, resolving any trailing field/record and
// delivering the terminal EventEnd.
func (p *Parser) Finish() error {
	if p.done {
		return p.err
	}
	switch p.state {
	case stateStartOfRecord:
		// Clean boundary: nothing pending.
	case stateStartOfField:
		if err := p.emitField(nil, false, p.pos); err != nil {
			p.fail(err)
			return err
		}
		if err := p.emitRecordEnd(); err != nil {
			p.fail(err)
			return err
		}
	case stateUnquotedField:
		data, inSitu := p.currentFieldView(nil, p.fieldStart)
		if p.opts.Dialect.TrimUnquotedFields {
			data, inSitu = trimTrailingUnquotedSpace(data, inSitu)
		}
		if err := p.emitField(data, inSitu, p.fieldStartPos); err != nil {
			p.fail(err)
			return err
		}
		if err := p.emitRecordEnd(); err != nil {
			p.fail(err)
			return err
		}
	case stateQuoteInQuoted:
		data, inSitu := p.quotedFieldView(nil, p.pendingQuoteIdx)
		if err := p.emitField(data, inSitu, p.fieldStartPos); err != nil {
			p.fail(err)
			return err
		}
		if err := p.emitRecordEnd(); err != nil {
			p.fail(err)
			return err
		}
	case stateQuotedField, stateEscapeInQuoted:
		e := newError(CodeInvalid, "unterminated quoted field", p.pos)
		if p.opts.EnableContextSnippet && p.needsCopy {
			e.Snippet = buildSnippet(p.fieldBuffer, len(p.fieldBuffer), p.snippetRadius())
		}
		p.fail(e)
		return e
	case stateComment:
		// A comment line with no trailing newline at EOF: nothing to
		// emit, the line is simply discarded.
	}
	p.state = stateEnd
	if err := p.listener.OnEvent(Event{Kind: EventEnd, Pos: p.pos, StartPos: p.pos}); err != nil {
		p.fail(err)
		return err
	}
	p.done = true
	return nil
}

func (p *Parser) fail(err error) {
	p.done = true
	p.err = err
	p.state = stateEnd
}

// --- limit checks -----------------------------------------------------

func (p *Parser) checkByteLimitsN(n int) error {
	l := p.opts.Limits
	if p.totalBytesConsumed+n > l.MaxTotalBytes {
		return newError(CodeLimit, "input exceeds max_total_bytes", p.pos)
	}
	if p.currentRecordBytes+n > l.MaxRecordBytes {
		return newError(CodeLimit, "record exceeds max_record_bytes", p.pos)
	}
	return nil
}

func (p *Parser) checkFieldByteLimit() error {
	if p.fieldRawLen+1 > p.opts.Limits.MaxFieldBytes {
		return newError(CodeLimit, "field exceeds max_field_bytes", p.pos)
	}
	return nil
}

func (p *Parser) checkFieldCountLimit() error {
	if p.fieldCountInRecord+1 > p.opts.Limits.MaxCols {
		return newError(CodeTooManyCols, "record exceeds max_cols", p.pos)
	}
	return nil
}

func (p *Parser) checkRowLimit() error {
	if p.rowsStarted+1 > p.opts.Limits.MaxRows {
		return newError(CodeLimit, "input exceeds max_rows", p.pos)
	}
	return nil
}

// --- position/consumption helpers --------------------------------------

func (p *Parser) consumeByte() {
	p.totalBytesConsumed++
	p.currentRecordBytes++
	p.pos.advanceBytes(1)
}

func (p *Parser) consumeBytes(n int) {
	p.totalBytesConsumed += n
	p.currentRecordBytes += n
	p.pos.advanceBytes(n)
}

func (p *Parser) consumeNewline(n int) {
	p.totalBytesConsumed += n
	p.currentRecordBytes += n
	p.pos.advanceNewline(n)
}

// --- event emission ------------------------------------------------------

func (p *Parser) emitRecordBegin() error {
	if err := p.checkRowLimit(); err != nil {
		return err
	}
	p.rowsStarted++
	p.currentRecordBytes = 0
	p.fieldCountInRecord = 0
	return p.listener.OnEvent(Event{Kind: EventRecordBegin, Pos: p.pos, StartPos: p.pos})
}

func (p *Parser) emitField(data []byte, inSitu bool, startPos Position) error {
	if err := p.checkFieldCountLimit(); err != nil {
		return err
	}
	p.fieldCountInRecord++
	return p.listener.OnEvent(Event{Kind: EventField, Data: data, InSitu: inSitu, Pos: p.pos, StartPos: startPos})
}

func (p *Parser) emitRecordEnd() error {
	return p.listener.OnEvent(Event{Kind: EventRecordEnd, Pos: p.pos, StartPos: p.pos})
}

// --- field assembly ------------------------------------------------------

func (p *Parser) resetField(contentStart int) {
	p.fieldStart = contentStart
	p.copiedUpto = contentStart
	p.needsCopy = false
	p.fieldRawLen = 0
	p.fieldStartPos = p.pos
}

// beginCopy forces the field to switch from a view into data to a copy
// in fieldBuffer, capturing everything from fieldStart up to (not
// including) from.
func (p *Parser) beginCopy(data []byte, from int) {
	if p.needsCopy {
		return
	}
	p.needsCopy = true
	p.fieldBuffer = p.fieldBuffer[:0]
	if from > p.fieldStart {
		p.fieldBuffer = append(p.fieldBuffer, data[p.fieldStart:from]...)
	}
	p.copiedUpto = from
}

func (p *Parser) flushCopy(data []byte, upto int) {
	if p.needsCopy && upto > p.copiedUpto {
		p.fieldBuffer = append(p.fieldBuffer, data[p.copiedUpto:upto]...)
		p.copiedUpto = upto
	}
}

// currentFieldView returns the content of an unquoted field ending
// (exclusive) at endIdx, plus whether it is still an in-situ view.
func (p *Parser) currentFieldView(data []byte, endIdx int) ([]byte, bool) {
	p.flushCopy(data, endIdx)
	if p.needsCopy {
		return p.fieldBuffer, false
	}
	return data[p.fieldStart:endIdx], true
}

// quotedFieldView is currentFieldView's counterpart for a field whose
// content ends at the opening byte of its closing/ambiguous quote.
func (p *Parser) quotedFieldView(data []byte, quoteIdx int) ([]byte, bool) {
	return p.currentFieldView(data, quoteIdx)
}

// pause stops processing data at index i because either input is
// genuinely exhausted or a multi-byte decision needs more lookahead
// than is currently available. If the parser is mid-field, whatever
// has been scanned so far is flushed into the field buffer (forcing a
// copy, since the original chunk's backing array is not guaranteed to
// survive past this Feed call); any bytes at data[i:] that represent a
// still-undecided lookahead are stashed in carry.
func (p *Parser) pause(data []byte, i int) {
	switch p.state {
	case stateQuoteInQuoted:
		// The quote at pendingQuoteIdx is not (yet) part of the field's
		// content either way, so the flush boundary is the quote, not
		// the current scan position.
		p.beginCopy(data, p.pendingQuoteIdx)
		p.flushCopy(data, p.pendingQuoteIdx)
	case stateUnquotedField, stateQuotedField, stateEscapeInQuoted:
		p.beginCopy(data, i)
		p.flushCopy(data, i)
	}
	if i < len(data) {
		p.carry = append(p.carry[:0], data[i:]...)
	}
}

// --- the transition table -------------------------------------------------

func bytesHavePrefix(data []byte, prefix []byte) (matched bool, need int) {
	need = len(prefix)
	avail := len(data)
	m := avail
	if m > need {
		m = need
	}
	for k := 0; k < m; k++ {
		if data[k] != prefix[k] {
			return false, need
		}
	}
	return true, need
}

func (p *Parser) run(data []byte) error {
	d := p.opts.Dialect
	n := len(data)
	i := 0

	for i < n {
		switch p.state {

		case stateStartOfRecord:
			if d.AllowComments && len(d.CommentPrefix) > 0 {
				matched, need := bytesHavePrefix(data[i:], d.CommentPrefix)
				if matched {
					if n-i < need {
						p.pause(data, i)
						return nil
					}
					if err := p.checkByteLimitsN(need); err != nil {
						return err
					}
					p.consumeBytes(need)
					i += need
					p.state = stateComment
					continue
				}
			}
			if err := p.emitRecordBegin(); err != nil {
				return err
			}
			p.state = stateStartOfField

		case stateStartOfField:
			b := data[i]
			if b == ' ' && (d.AllowSpaceAfterDelimiter || d.TrimUnquotedFields) {
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				p.consumeByte()
				i++
				continue
			}
			switch {
			case b == d.Quote:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				p.consumeByte()
				i++
				p.resetField(i)
				p.state = stateQuotedField

			case b == d.Delimiter:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				if err := p.emitField(nil, false, p.pos); err != nil {
					return err
				}
				p.consumeByte()
				i++
				p.state = stateStartOfField

			default:
				if isNewlineByte(b) {
					kind, m, incomplete := detectNewline(data[i:], d)
					if incomplete {
						p.pause(data, i)
						return nil
					}
					if kind != NewlineNone {
						if err := p.checkByteLimitsN(m); err != nil {
							return err
						}
						if err := p.emitField(nil, false, p.pos); err != nil {
							return err
						}
						p.consumeNewline(m)
						i += m
						if err := p.emitRecordEnd(); err != nil {
							return err
						}
						p.state = stateStartOfRecord
						continue
					}
				}
				p.resetField(i)
				p.state = stateUnquotedField
			}

		case stateUnquotedField:
			b := data[i]
			switch {
			case b == d.Delimiter:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				fdata, inSitu := p.currentFieldView(data, i)
				if d.TrimUnquotedFields {
					fdata, inSitu = trimTrailingUnquotedSpace(fdata, inSitu)
				}
				if err := p.emitField(fdata, inSitu, p.fieldStartPos); err != nil {
					return err
				}
				p.consumeByte()
				i++
				p.state = stateStartOfField

			case isNewlineByte(b):
				kind, m, incomplete := detectNewline(data[i:], d)
				if incomplete {
					p.pause(data, i)
					return nil
				}
				if kind != NewlineNone {
					if err := p.checkByteLimitsN(m); err != nil {
						return err
					}
					fdata, inSitu := p.currentFieldView(data, i)
					if d.TrimUnquotedFields {
						fdata, inSitu = trimTrailingUnquotedSpace(fdata, inSitu)
					}
					if err := p.emitField(fdata, inSitu, p.fieldStartPos); err != nil {
						return err
					}
					p.consumeNewline(m)
					i += m
					if err := p.emitRecordEnd(); err != nil {
						return err
					}
					p.state = stateStartOfRecord
					continue
				}
				if !d.AllowUnquotedNewlines {
					return newError(CodeInvalid, "raw newline in unquoted field", p.pos)
				}
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				if err := p.checkFieldByteLimit(); err != nil {
					return err
				}
				p.fieldRawLen++
				p.consumeByte()
				i++

			case b == d.Quote:
				if !d.AllowUnquotedQuotes {
					return newError(CodeUnexpectedQuote, "unexpected quote in unquoted field", p.pos)
				}
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				if err := p.checkFieldByteLimit(); err != nil {
					return err
				}
				p.fieldRawLen++
				p.consumeByte()
				i++

			default:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				if err := p.checkFieldByteLimit(); err != nil {
					return err
				}
				p.fieldRawLen++
				p.consumeByte()
				i++
			}

		case stateQuotedField:
			b := data[i]
			switch {
			case b == d.Quote:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				p.pendingQuoteIdx = i
				p.consumeByte()
				i++
				p.state = stateQuoteInQuoted

			case d.Escape == EscapeBackslash && b == '\\':
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				p.beginCopy(data, i)
				p.copiedUpto = i + 1
				p.consumeByte()
				i++
				p.state = stateEscapeInQuoted

			case isNewlineByte(b):
				kind, m, incomplete := detectNewline(data[i:], d)
				if incomplete {
					p.pause(data, i)
					return nil
				}
				if kind == NewlineNone {
					// Byte doesn't form an accepted newline at all
					// (e.g. bare CR with neither CR nor CRLF accepted);
					// treat literally like any other content byte.
					if err := p.checkByteLimitsN(1); err != nil {
						return err
					}
					if err := p.checkFieldByteLimit(); err != nil {
						return err
					}
					p.fieldRawLen++
					p.consumeByte()
					i++
					continue
				}
				if !d.NewlineInQuotes {
					return newError(CodeInvalid, "newline in quoted field", p.pos)
				}
				if err := p.checkByteLimitsN(m); err != nil {
					return err
				}
				if err := p.checkFieldByteLimit(); err != nil {
					return err
				}
				p.fieldRawLen += m
				p.consumeNewline(m)
				i += m

			default:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				if err := p.checkFieldByteLimit(); err != nil {
					return err
				}
				p.fieldRawLen++
				p.consumeByte()
				i++
			}

		case stateQuoteInQuoted:
			b := data[i]
			switch {
			case d.Escape == EscapeDoubledQuote && b == d.Quote:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				p.beginCopy(data, p.pendingQuoteIdx)
				p.fieldBuffer = append(p.fieldBuffer, d.Quote)
				p.copiedUpto = i + 1
				p.fieldRawLen++
				p.consumeByte()
				i++
				p.state = stateQuotedField

			case b == d.Delimiter:
				if err := p.checkByteLimitsN(1); err != nil {
					return err
				}
				fdata, inSitu := p.quotedFieldView(data, p.pendingQuoteIdx)
				if err := p.emitField(fdata, inSitu, p.fieldStartPos); err != nil {
					return err
				}
				p.consumeByte()
				i++
				p.state = stateStartOfField

			default:
				if isNewlineByte(b) {
					kind, m, incomplete := detectNewline(data[i:], d)
					if incomplete {
						p.pause(data, i)
						return nil
					}
					if kind != NewlineNone {
						if err := p.checkByteLimitsN(m); err != nil {
							return err
						}
						fdata, inSitu := p.quotedFieldView(data, p.pendingQuoteIdx)
						if err := p.emitField(fdata, inSitu, p.fieldStartPos); err != nil {
							return err
						}
						p.consumeNewline(m)
						i += m
						if err := p.emitRecordEnd(); err != nil {
							return err
						}
						p.state = stateStartOfRecord
						continue
					}
				}
				return newError(CodeInvalid, "unexpected byte after closing quote", p.pos)
			}

		case stateEscapeInQuoted:
			b := data[i]
			mapped, ok := unescapeBackslash(b, d.Quote)
			if !ok {
				return newError(CodeBadEscape, "invalid backslash escape", p.pos)
			}
			if err := p.checkByteLimitsN(1); err != nil {
				return err
			}
			if err := p.checkFieldByteLimit(); err != nil {
				return err
			}
			p.fieldBuffer = append(p.fieldBuffer, mapped)
			p.copiedUpto = i + 1
			p.fieldRawLen++
			p.consumeByte()
			i++
			p.state = stateQuotedField

		case stateComment:
			b := data[i]
			kind, m, incomplete := detectNewline(data[i:], d)
			if incomplete {
				p.pause(data, i)
				return nil
			}
			if kind != NewlineNone {
				if err := p.checkByteLimitsN(m); err != nil {
					return err
				}
				p.consumeNewline(m)
				i += m
				p.state = stateStartOfRecord
				continue
			}
			if err := p.checkByteLimitsN(1); err != nil {
				return err
			}
			p.consumeByte()
			i++
			_ = b

		case stateEnd:
			return nil
		}
	}
	// Data exhausted with nothing left ambiguous: if a field is still
	// being scanned, whatever's been seen so far must survive into the
	// next Feed call, which starts fresh data at index 0.
	p.pause(data, i)
	return nil
}

// trimTrailingUnquotedSpace drops trailing spaces/tabs from an unquoted
// field's view. It only ever shrinks the slice, so it never forces an
// in-situ field to become a copy.
func trimTrailingUnquotedSpace(data []byte, inSitu bool) ([]byte, bool) {
	end := len(data)
	for end > 0 && (data[end-1] == ' ' || data[end-1] == '\t') {
		end--
	}
	return data[:end], inSitu
}

func unescapeBackslash(b, quote byte) (byte, bool) {
	switch b {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '\\':
		return '\\', true
	case quote:
		return quote, true
	default:
		return 0, false
	}
}
