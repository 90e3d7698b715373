// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokBlank
	tokVar
	tokLang
	tokInteger
	tokDecimal
	tokDouble
	tokString
	tokName
	tokPunct
)

// token is a lexeme with its byte span in the source.
type token struct {
	kind  tokenKind
	text  string // raw source text
	value string // unescaped value for IRIs, strings, variables and language tags
	pfx   string // prefix of a prefixed name
	local string // unescaped local part of a prefixed name
	start int
	end   int
}

// lexError is returned by the lexer with the byte offset of the bad input.
type lexError struct {
	off    int
	detail string
}

func (e *lexError) Error() string { return e.detail }

type lexer struct {
	src string
	pos int
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, start: start, end: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '<':
		if tok, ok, err := l.iriRef(); ok || err != nil {
			return tok, err
		}
		return l.punct()
	case c == '"' || c == '\'':
		return l.stringLit()
	case c == '?' || c == '$':
		r, _ := utf8.DecodeRuneInString(l.src[min(l.pos+1, len(l.src)):])
		if l.pos+1 < len(l.src) && isVarChar(r, true) {
			l.pos++
			name := l.readWhile(func(r rune) bool { return isVarChar(r, false) })
			return token{kind: tokVar, text: l.src[start:l.pos], value: name, start: start, end: l.pos}, nil
		}
		return l.punct()
	case c == '@':
		l.pos++
		tag := l.readWhile(func(r rune) bool {
			return r < utf8.RuneSelf && (isASCIILetter(byte(r)) || r == '-' || isDigit(byte(r)))
		})
		if tag == "" {
			return token{}, &lexError{off: start, detail: "language tag"}
		}
		return token{kind: tokLang, text: l.src[start:l.pos], value: tag, start: start, end: l.pos}, nil
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.number()
	case c == '_' && l.pos+1 < len(l.src) && l.src[l.pos+1] == ':':
		l.pos += 2
		label := l.readWhile(func(r rune) bool { return isPNChar(r) || r == '.' })
		l.trimDots(&label)
		if label == "" {
			return token{}, &lexError{off: start, detail: "blank node label"}
		}
		return token{kind: tokBlank, text: l.src[start:l.pos], value: label, start: start, end: l.pos}, nil
	case c == ':':
		return l.pname(start, "")
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if isPNCharsBase(r) {
		word := l.readWhile(func(r rune) bool { return isPNChar(r) || r == '.' })
		l.trimDots(&word)
		if l.pos < len(l.src) && l.src[l.pos] == ':' {
			return l.pname(start, word)
		}
		return token{kind: tokName, text: word, value: word, start: start, end: l.pos}, nil
	}
	return l.punct()
}

// trimDots backs the cursor up over trailing dots, which end a triple.
func (l *lexer) trimDots(word *string) {
	for strings.HasSuffix(*word, ".") {
		*word = (*word)[:len(*word)-1]
		l.pos--
	}
}

func (l *lexer) readWhile(ok func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !ok(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

var punctuation = []string{"^^", "&&", "||", "!=", "<=", ">=",
	"{", "}", "(", ")", "[", "]", ".", ",", ";", "*", "/", "|", "^", "?", "+", "-", "!", "=", "<", ">"}

func (l *lexer) punct() (token, error) {
	start := l.pos
	for _, p := range punctuation {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return token{kind: tokPunct, text: p, value: p, start: start, end: l.pos}, nil
		}
	}
	return token{}, &lexError{off: start, detail: "unexpected character"}
}

// iriRef lexes <...>. ok is false when the input is a comparison operator.
func (l *lexer) iriRef() (token, bool, error) {
	start := l.pos
	i := l.pos + 1
	var sb strings.Builder
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == '>':
			tok := token{kind: tokIRI, text: l.src[start : i+1], value: sb.String(), start: start, end: i + 1}
			l.pos = i + 1
			return tok, true, nil
		case c == '\\':
			r, n, ok := unescapeUnicode(l.src[i:])
			if !ok {
				return token{}, false, &lexError{off: i, detail: "IRI escape sequence"}
			}
			sb.WriteRune(r)
			i += n
		case c <= 0x20 || strings.IndexByte(`<"{}|^`+"`", c) >= 0:
			return token{}, false, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return token{}, false, nil
}

// unescapeUnicode decodes \uXXXX or \UXXXXXXXX at the start of s.
func unescapeUnicode(s string) (rune, int, bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	width := 0
	switch s[1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, 0, false
	}
	if len(s) < 2+width {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[2:2+width], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return 0, 0, false
	}
	return rune(v), 2 + width, true
}

func (l *lexer) stringLit() (token, error) {
	start := l.pos
	q := l.src[l.pos]
	long := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(q), 3))
	if long {
		l.pos += 3
	} else {
		l.pos++
	}
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case long && strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(q), 3)):
			// A long string may end with up to two extra quotes before the delimiter.
			for l.pos+3 < len(l.src) && l.src[l.pos+3] == q {
				sb.WriteByte(q)
				l.pos++
			}
			l.pos += 3
			return token{kind: tokString, text: l.src[start:l.pos], value: sb.String(), start: start, end: l.pos}, nil
		case !long && c == q:
			l.pos++
			return token{kind: tokString, text: l.src[start:l.pos], value: sb.String(), start: start, end: l.pos}, nil
		case !long && (c == '\n' || c == '\r'):
			return token{}, &lexError{off: l.pos, detail: "end of string literal"}
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, &lexError{off: l.pos, detail: "string escape sequence"}
			}
			if r, n, ok := unescapeUnicode(l.src[l.pos:]); ok {
				sb.WriteRune(r)
				l.pos += n
				continue
			}
			esc, ok := stringEscapes[l.src[l.pos+1]]
			if !ok {
				return token{}, &lexError{off: l.pos, detail: "string escape sequence"}
			}
			sb.WriteByte(esc)
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &lexError{off: l.pos, detail: "end of string literal"}
}

var stringEscapes = map[byte]byte{
	't': '\t', 'b': '\b', 'n': '\n', 'r': '\r', 'f': '\f', '"': '"', '\'': '\'', '\\': '\\',
}

func (l *lexer) number() (token, error) {
	start := l.pos
	kind := tokInteger
	l.readDigits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		kind = tokDecimal
		l.pos++
		l.readDigits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			kind = tokDouble
			l.readDigits()
		} else {
			l.pos = save
		}
	}
	text := l.src[start:l.pos]
	return token{kind: kind, text: text, value: text, start: start, end: l.pos}, nil
}

func (l *lexer) readDigits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

// pname lexes the local part of a prefixed name; the cursor is on the colon.
func (l *lexer) pname(start int, prefix string) (token, error) {
	l.pos++ // ':'
	var local strings.Builder
	first := true
	dots := 0 // trailing unescaped dots, which belong to the enclosing pattern
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '%' {
			if l.pos+2 < len(l.src) && isHex(l.src[l.pos+1]) && isHex(l.src[l.pos+2]) {
				local.WriteString(l.src[l.pos : l.pos+3])
				l.pos += 3
				first, dots = false, 0
				continue
			}
			return token{}, &lexError{off: l.pos, detail: "percent escape"}
		}
		if c == '\\' {
			if l.pos+1 < len(l.src) && strings.IndexByte(localEscapes, l.src[l.pos+1]) >= 0 {
				local.WriteByte(l.src[l.pos+1])
				l.pos += 2
				first, dots = false, 0
				continue
			}
			return token{}, &lexError{off: l.pos, detail: "local name escape"}
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		ok := isPNChar(r) || r == ':' || (!first && r == '.')
		if first {
			ok = isPNCharsU(r) || r == ':' || unicode.IsDigit(r)
		}
		if !ok {
			break
		}
		if r == '.' {
			dots++
		} else {
			dots = 0
		}
		local.WriteRune(r)
		l.pos += size
		first = false
	}
	name := local.String()
	name = name[:len(name)-dots]
	l.pos -= dots
	return token{kind: tokPName, text: l.src[start:l.pos], pfx: prefix, local: name, start: start, end: l.pos}, nil
}

const localEscapes = "_~.-!$&'()*+,;=/?#@%"

func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isHex(c byte) bool         { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }

func isPNCharsBase(r rune) bool {
	return unicode.IsLetter(r) && r != '_'
}

func isPNCharsU(r rune) bool {
	return isPNCharsBase(r) || r == '_'
}

func isPNChar(r rune) bool {
	return isPNCharsU(r) || r == '-' || unicode.IsDigit(r) || r == 0xB7 ||
		(r >= 0x0300 && r <= 0x036F) || r == 0x203F || r == 0x2040
}

func isVarChar(r rune, first bool) bool {
	if isPNCharsU(r) || unicode.IsDigit(r) {
		return true
	}
	return !first && (r == 0xB7 || (r >= 0x0300 && r <= 0x036F) || r == 0x203F || r == 0x2040)
}
