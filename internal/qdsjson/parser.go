// Package qdsjson parses and validates QDS measurement sets.
// This file implements a streaming JSON scanner with a bounded nesting
// depth; it emits typed events to a Handler instead of building a tree.
//
// Accepted document shapes:
//
//	[{"NAME":"a","TYPE":"STRING","VALUE":""}, ...]
//	{"NAME":"a","TYPE":"STRING","VALUE":""}
//
// Scalars keep their JSON type: string, int64, uint64, double, bool.
// null is rejected.
package qdsjson

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// Handler receives scanner events. A non-nil return aborts the parse and is
// propagated unchanged to the caller of Parse.
type Handler interface {
	OnObjectBegin() error
	OnObjectEnd() error
	OnKey(key string) error
	OnString(s string) error
	OnInt64(v int64, raw string) error
	OnUint64(v uint64, raw string) error
	OnDouble(v float64, raw string) error
	OnBool(v bool) error
}

// maxDepth bounds structure nesting: an array of objects (or a bare object)
// fits, anything nested deeper is refused.
const maxDepth = 2

// Parse scans data and drives h. Trailing non-whitespace after the document
// is an error.
func Parse(data []byte, h Handler) error {
	p := &parser{data: data, h: h}
	p.skipSpace()
	if p.pos >= len(p.data) {
		return p.syntaxErr("empty document")
	}
	if err := p.parseValue(0); err != nil {
		return err
	}
	p.skipSpace()
	if p.pos < len(p.data) {
		return p.syntaxErr("extra data after document")
	}
	return nil
}

type parser struct {
	data []byte
	pos  int
	h    Handler
}

func (p *parser) syntaxErr(what string) error {
	return &qds.ParsingError{
		Msg:   fmt.Sprintf("Parsing error: %s at offset %d", what, p.pos),
		Scope: "Parser.Parse",
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseValue(depth int) error {
	switch c := p.data[p.pos]; {
	case c == '{':
		return p.parseObject(depth)
	case c == '[':
		return p.parseArray(depth)
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return err
		}
		return p.h.OnString(s)
	case c == 't':
		if err := p.expect("true"); err != nil {
			return err
		}
		return p.h.OnBool(true)
	case c == 'f':
		if err := p.expect("false"); err != nil {
			return err
		}
		return p.h.OnBool(false)
	case c == 'n':
		return p.syntaxErr("null is not allowed")
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.syntaxErr(fmt.Sprintf("unexpected character %q", c))
	}
}

func (p *parser) expect(lit string) error {
	if p.pos+len(lit) > len(p.data) || string(p.data[p.pos:p.pos+len(lit)]) != lit {
		return p.syntaxErr("invalid literal")
	}
	p.pos += len(lit)
	return nil
}

func (p *parser) parseObject(depth int) error {
	if depth >= maxDepth {
		return p.syntaxErr("document exceeds maximum nesting depth")
	}
	p.pos++ // '{'
	if err := p.h.OnObjectBegin(); err != nil {
		return err
	}
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == '}' {
		p.pos++
		return p.h.OnObjectEnd()
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != '"' {
			return p.syntaxErr("expected object key")
		}
		key, err := p.parseString()
		if err != nil {
			return err
		}
		if err := p.h.OnKey(key); err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != ':' {
			return p.syntaxErr("expected ':'")
		}
		p.pos++
		p.skipSpace()
		if p.pos >= len(p.data) {
			return p.syntaxErr("unexpected end of document")
		}
		if err := p.parseValue(depth + 1); err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.data) {
			return p.syntaxErr("unexpected end of document")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return p.h.OnObjectEnd()
		default:
			return p.syntaxErr("expected ',' or '}'")
		}
	}
}

func (p *parser) parseArray(depth int) error {
	if depth >= maxDepth {
		return p.syntaxErr("document exceeds maximum nesting depth")
	}
	p.pos++ // '['
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == ']' {
		p.pos++
		return nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return p.syntaxErr("unexpected end of document")
		}
		if err := p.parseValue(depth + 1); err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.data) {
			return p.syntaxErr("unexpected end of document")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return nil
		default:
			return p.syntaxErr("expected ',' or ']'")
		}
	}
}

// parseString decodes a JSON string literal including \uXXXX escapes and
// surrogate pairs. The cursor must be on the opening quote.
func (p *parser) parseString() (string, error) {
	p.pos++ // '"'
	start := p.pos
	// Fast path: no escapes, no control characters.
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '"' {
			s := string(p.data[start:p.pos])
			p.pos++
			return s, nil
		}
		if c == '\\' || c < 0x20 {
			break
		}
		p.pos++
	}
	var sb strings.Builder
	sb.Write(p.data[start:p.pos])
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '"':
			p.pos++
			return sb.String(), nil
		case c < 0x20:
			return "", p.syntaxErr("unescaped control character in string")
		case c == '\\':
			p.pos++
			if p.pos >= len(p.data) {
				return "", p.syntaxErr("unterminated escape")
			}
			switch p.data[p.pos] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
				continue
			default:
				return "", p.syntaxErr("invalid escape")
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.syntaxErr("unterminated string")
}

// parseUnicodeEscape consumes the "uXXXX" tail of a \u escape (cursor on
// the 'u') and a following low surrogate when needed.
func (p *parser) parseUnicodeEscape() (rune, error) {
	hi, err := p.readHex4()
	if err != nil {
		return 0, err
	}
	r := rune(hi)
	if utf16.IsSurrogate(r) {
		if p.pos+1 < len(p.data) && p.data[p.pos] == '\\' && p.data[p.pos+1] == 'u' {
			p.pos++ // '\'
			lo, err := p.readHex4()
			if err != nil {
				return 0, err
			}
			if dec := utf16.DecodeRune(r, rune(lo)); dec != utf8.RuneError {
				return dec, nil
			}
		}
		return utf8.RuneError, nil
	}
	return r, nil
}

func (p *parser) readHex4() (uint32, error) {
	p.pos++ // 'u'
	if p.pos+4 > len(p.data) {
		return 0, p.syntaxErr("truncated \\u escape")
	}
	v, err := strconv.ParseUint(string(p.data[p.pos:p.pos+4]), 16, 32)
	if err != nil {
		return 0, p.syntaxErr("invalid \\u escape")
	}
	p.pos += 4
	return uint32(v), nil
}

// parseNumber scans a JSON number and dispatches it as int64, uint64 or
// double. Integers that overflow int64 are retried as uint64, then as
// double, mirroring how arbitrary-precision producers degrade.
func (p *parser) parseNumber() error {
	start := p.pos
	isFloat := false
	if p.data[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c >= '0' && c <= '9':
			p.pos++
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
			isFloat = true
			p.pos++
		default:
			goto done
		}
	}
done:
	raw := string(p.data[start:p.pos])
	if raw == "" || raw == "-" {
		return p.syntaxErr("invalid number")
	}
	if !isFloat {
		if iv, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return p.h.OnInt64(iv, raw)
		}
		if uv, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return p.h.OnUint64(uv, raw)
		}
	}
	fv, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return p.syntaxErr("invalid number " + strconv.Quote(raw))
	}
	return p.h.OnDouble(fv, raw)
}
