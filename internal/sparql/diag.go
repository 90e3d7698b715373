// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Position locates a byte offset in query text the way diagnostics report it:
// Char is a 0-based rune offset, Line and Column are 1-based.
type Position struct {
	Char   int
	Line   int
	Column int
}

func positionOf(src string, off int) Position {
	if off > len(src) {
		off = len(src)
	}
	head := src[:off]
	char := utf8.RuneCountInString(head)
	line := strings.Count(head, "\n") + 1
	col := char + 1
	if nl := strings.LastIndexByte(head, '\n'); nl >= 0 {
		col = utf8.RuneCountInString(head[nl+1:]) + 1
	}
	return Position{Char: char, Line: line, Column: col}
}

// foundAt extracts the text reported after "found": a run of up to 16
// letters or digits starting at off, otherwise the single rune at off.
func foundAt(src string, off int) string {
	if off >= len(src) {
		return ""
	}
	end := off
	n := 0
	for end < len(src) && n < 16 {
		r, size := utf8.DecodeRuneInString(src[end:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
		n++
	}
	if end == off {
		_, size := utf8.DecodeRuneInString(src[off:])
		end = off + size
	}
	return src[off:end]
}

func quoteFound(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// diagnostic renders "Expected X, found 'y'  (at char N), (line:L, col:C)".
func diagnostic(src string, off int, expected string) string {
	pos := positionOf(src, off)
	found := "end of text"
	if f := foundAt(src, off); f != "" {
		found = quoteFound(f)
	}
	return fmt.Sprintf("Expected %s, found %s  (at char %d), (line:%d, col:%d)",
		expected, found, pos.Char, pos.Line, pos.Column)
}

func newSyntaxError(src string, off int, expected, detail string) error {
	pos := positionOf(src, off)
	return sigilerr.New(sigilerr.CodeSPARQLSyntaxInvalid, diagnostic(src, off, expected),
		sigilerr.Field("offset", pos.Char),
		sigilerr.Field("line", pos.Line),
		sigilerr.Field("column", pos.Column),
		sigilerr.Field("detail", detail),
	)
}

func newUnsupportedError(src string, off int) error {
	pos := positionOf(src, off)
	return sigilerr.New(sigilerr.CodeSPARQLQueryTypeRejected, diagnostic(src, off, anyQueryForm),
		sigilerr.Field("offset", pos.Char),
		sigilerr.Field("line", pos.Line),
		sigilerr.Field("column", pos.Column),
		sigilerr.Field("allowed", []string{"SELECT", "CONSTRUCT", "DESCRIBE", "ASK"}),
	)
}

const anyQueryForm = "{SelectQuery | ConstructQuery | DescribeQuery | AskQuery}"
