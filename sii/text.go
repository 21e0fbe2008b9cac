package sii

import (
	"fmt"
	"io"
	"strconv"
)

// The text form is parsed with a restricted grammar: enough for the
// game's achievements schema and the localization units, not the whole
// language. Units look like
//
//	SiiNunit {
//	  unit_class : unit.name {
//	    attribute: value
//	    array_attribute[]: value
//	  }
//	}
//
// with # line comments, optional UTF-8 BOM, quoted strings with \\ \" \n
// escapes, and bare words that may begin with digits.

type tokenKind int

const (
	tokIdent tokenKind = iota + 1
	tokString
	tokInt
	tokNegInt
	tokFloat
	tokBool
	tokLBrace
	tokRBrace
	tokColon
	tokBrackets // the literal pair []
	tokEOF
)

type textToken struct {
	kind tokenKind
	s    string
	n    uint64
	i    int64
	f    float32
	b    bool
	off  int
}

type textLexer struct {
	data []byte
	pos  int
}

func (lx *textLexer) peekByte() (byte, bool) {
	if lx.pos >= len(lx.data) {
		return 0, false
	}
	return lx.data[lx.pos], true
}

func (lx *textLexer) errf(format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", ErrSyntax, lx.pos, fmt.Sprintf(format, args...))
}

func (lx *textLexer) next() (textToken, error) {
	if err := lx.skipSpace(); err != nil {
		return textToken{}, err
	}
	start := lx.pos
	c, ok := lx.peekByte()
	if !ok {
		return textToken{kind: tokEOF, off: start}, nil
	}
	switch {
	case isWordByte(c):
		return lx.word(start)
	case c == '{':
		lx.pos++
		return textToken{kind: tokLBrace, off: start}, nil
	case c == '}':
		lx.pos++
		return textToken{kind: tokRBrace, off: start}, nil
	case c == ':':
		lx.pos++
		return textToken{kind: tokColon, off: start}, nil
	case c == '[':
		lx.pos++
		if b, ok := lx.peekByte(); !ok || b != ']' {
			return textToken{}, lx.errf("expected ']'")
		}
		lx.pos++
		return textToken{kind: tokBrackets, off: start}, nil
	case c == '"':
		return lx.quoted(start)
	}
	return textToken{}, lx.errf("unexpected byte 0x%02X", c)
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '.' || c == '_' || c == '-'
}

// word reads a bare identifier or number. The grammar permits identifiers
// that begin with digits (achievement_name: 5_jobs_in_a_row), so the
// whole run is taken first and classified afterwards.
func (lx *textLexer) word(start int) (textToken, error) {
	for {
		c, ok := lx.peekByte()
		if !ok || !isWordByte(c) {
			break
		}
		lx.pos++
	}
	s := string(lx.data[start:lx.pos])

	alpha := false
	dotted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			alpha = true
		case c == '.':
			dotted = true
		case c == '-':
			if i != 0 {
				alpha = true
			}
		}
	}
	if alpha {
		switch s {
		case "true":
			return textToken{kind: tokBool, b: true, off: start}, nil
		case "false":
			return textToken{kind: tokBool, off: start}, nil
		}
		return textToken{kind: tokIdent, s: s, off: start}, nil
	}
	if dotted && s != "." {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return textToken{kind: tokIdent, s: s, off: start}, nil
		}
		return textToken{kind: tokFloat, f: float32(f), off: start}, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return textToken{kind: tokInt, n: n, off: start}, nil
	}
	// Negative integers stay signed rather than wrapping into uint64.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return textToken{kind: tokNegInt, i: n, off: start}, nil
	}
	return textToken{kind: tokIdent, s: s, off: start}, nil
}

func (lx *textLexer) quoted(start int) (textToken, error) {
	lx.pos++ // opening quote
	var out []byte
	for {
		c, ok := lx.peekByte()
		if !ok {
			return textToken{}, lx.errf("unterminated string")
		}
		switch c {
		case '"':
			lx.pos++
			return textToken{kind: tokString, s: string(out), off: start}, nil
		case '\\':
			lx.pos++
			e, ok := lx.peekByte()
			if !ok {
				return textToken{}, lx.errf("unterminated escape")
			}
			switch e {
			case '"', '\\':
				out = append(out, e)
			case 'n':
				out = append(out, '\n')
			default:
				return textToken{}, lx.errf("unsupported escape \\%c", e)
			}
			lx.pos++
		default:
			out = append(out, c)
			lx.pos++
		}
	}
}

func (lx *textLexer) skipSpace() error {
	for {
		c, ok := lx.peekByte()
		if !ok {
			return nil
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			lx.pos++
		case '#':
			for {
				c, ok := lx.peekByte()
				if !ok || c == '\n' {
					break
				}
				lx.pos++
			}
		case 0xEF:
			if lx.pos+3 > len(lx.data) || lx.data[lx.pos+1] != 0xBB || lx.data[lx.pos+2] != 0xBF {
				return lx.errf("malformed UTF-8 BOM")
			}
			lx.pos += 3
		default:
			return nil
		}
	}
}

// TextParser streams units out of a textual SII buffer.
type TextParser struct {
	lx     textLexer
	peeked *textToken
}

// NewTextParser checks the SiiNunit wrapper and positions the parser at
// the first unit.
func NewTextParser(data []byte) (*TextParser, error) {
	p := &TextParser{lx: textLexer{data: data}}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokIdent || tok.s != "SiiNunit" {
		return nil, fmt.Errorf("%w: expected SiiNunit header", ErrUnrecognizedContainer)
	}
	if err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *TextParser) next() (textToken, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lx.next()
}

func (p *TextParser) peek() (textToken, error) {
	if p.peeked == nil {
		t, err := p.lx.next()
		if err != nil {
			return textToken{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *TextParser) expect(kind tokenKind, what string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.kind != kind {
		return fmt.Errorf("%w: offset %d: expected %s", ErrSyntax, tok.off, what)
	}
	return nil
}

// Next returns the next unit, or io.EOF at the closing brace of the
// SiiNunit wrapper. Text-form instances have no definition identifier;
// DefID is zero and values take the shapes the grammar can express
// (string, uint64, int64 for negatives, float32, bool, and homogeneous
// arrays thereof).
func (p *TextParser) Next() (*Instance, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokRBrace, tokEOF:
		return nil, io.EOF
	case tokIdent:
		return p.readUnit()
	}
	return nil, fmt.Errorf("%w: offset %d: expected unit name", ErrSyntax, tok.off)
}

func (p *TextParser) readUnit() (*Instance, error) {
	nameTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	idTok, err := p.next()
	if err != nil {
		return nil, err
	}
	if idTok.kind != tokIdent {
		return nil, fmt.Errorf("%w: offset %d: expected unit ID", ErrSyntax, idTok.off)
	}
	unitID, err := ParseID(idTok.s)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	fields := make(map[string]Value)
	// Arrays build up one element per line; collect them separately and
	// fold to typed slices once the unit closes.
	arrays := make(map[string][]Value)
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokRBrace {
			break
		}
		if tok.kind != tokIdent {
			return nil, fmt.Errorf("%w: offset %d: expected attribute name", ErrSyntax, tok.off)
		}
		name := tok.s
		isArray := false
		if nxt, err := p.peek(); err != nil {
			return nil, err
		} else if nxt.kind == tokBrackets {
			p.peeked = nil
			isArray = true
		}
		if err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		valTok, err := p.next()
		if err != nil {
			return nil, err
		}
		var v Value
		switch valTok.kind {
		case tokIdent, tokString:
			v = valTok.s
		case tokInt:
			v = valTok.n
		case tokNegInt:
			v = valTok.i
		case tokFloat:
			v = valTok.f
		case tokBool:
			v = valTok.b
		default:
			return nil, fmt.Errorf("%w: offset %d: expected attribute value", ErrSyntax, valTok.off)
		}
		if isArray {
			arrays[name] = append(arrays[name], v)
		} else {
			fields[name] = v
		}
	}

	for name, vals := range arrays {
		folded, err := foldArray(vals)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		fields[name] = folded
	}
	return &Instance{Name: nameTok.s, ID: unitID, Fields: fields}, nil
}

// foldArray converts collected elements to a homogeneous typed slice.
func foldArray(vals []Value) (Value, error) {
	switch vals[0].(type) {
	case string:
		out := make([]string, len(vals))
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				return nil, mixedArray(v)
			}
			out[i] = s
		}
		return out, nil
	case uint64:
		out := make([]uint64, len(vals))
		for i, v := range vals {
			n, ok := v.(uint64)
			if !ok {
				return nil, mixedArray(v)
			}
			out[i] = n
		}
		return out, nil
	case int64:
		out := make([]int64, len(vals))
		for i, v := range vals {
			n, ok := v.(int64)
			if !ok {
				return nil, mixedArray(v)
			}
			out[i] = n
		}
		return out, nil
	case float32:
		out := make([]float32, len(vals))
		for i, v := range vals {
			f, ok := v.(float32)
			if !ok {
				return nil, mixedArray(v)
			}
			out[i] = f
		}
		return out, nil
	case bool:
		out := make([]bool, len(vals))
		for i, v := range vals {
			b, ok := v.(bool)
			if !ok {
				return nil, mixedArray(v)
			}
			out[i] = b
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot build array of %T", ErrFieldType, vals[0])
}

func mixedArray(v Value) error {
	return fmt.Errorf("%w: mixed array element %T", ErrFieldType, v)
}
