// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// SlotKind is the type of a template slot, which decides how its value is escaped.
type SlotKind string

const (
	// SlotIRI renders a string as <iri>.
	SlotIRI SlotKind = "iri"
	// SlotIRIs renders a []string as space separated <iri> terms.
	SlotIRIs SlotKind = "iris"
	// SlotLiteral renders a string as a quoted literal.
	SlotLiteral SlotKind = "literal"
	// SlotInt renders a non-negative integer.
	SlotInt SlotKind = "int"
	// SlotPath renders a string that must parse as a property path on its own.
	SlotPath SlotKind = "path"
	// SlotName renders a string restricted to local-name characters.
	SlotName SlotKind = "name"
)

var (
	slotPattern = regexp.MustCompile(`\{\{(iri|iris|literal|int|path|name):([A-Za-z_][A-Za-z0-9_]*)\}\}`)
	namePattern = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?$`)
)

type slot struct {
	kind  SlotKind
	name  string
	start int
	end   int
}

// Template is a query with named, typed slots written as {{kind:name}}.
// Values are escaped per slot kind, never interpolated as raw text.
type Template struct {
	text  string
	slots []slot
}

// NewTemplate scans text for slots. A name may appear more than once but
// always with the same kind.
func NewTemplate(text string) (*Template, error) {
	t := &Template{text: text}
	kinds := map[string]SlotKind{}
	for _, m := range slotPattern.FindAllStringSubmatchIndex(text, -1) {
		s := slot{kind: SlotKind(text[m[2]:m[3]]), name: text[m[4]:m[5]], start: m[0], end: m[1]}
		if k, ok := kinds[s.name]; ok && k != s.kind {
			return nil, sigilerr.Errorf(sigilerr.CodeSPARQLTemplateInvalid,
				"template slot %q used as both %s and %s", s.name, k, s.kind)
		}
		kinds[s.name] = s.kind
		t.slots = append(t.slots, s)
	}
	return t, nil
}

// MustTemplate is NewTemplate for package-level templates.
func MustTemplate(text string) *Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Render fills every slot from values and parses the result. Missing or
// unused values and values of the wrong type are invalid input; a rendered
// query that does not parse is a syntax error.
func (t *Template) Render(values map[string]any) (*Query, error) {
	used := map[string]bool{}
	var sb strings.Builder
	last := 0
	for _, s := range t.slots {
		v, ok := values[s.name]
		if !ok {
			return nil, sigilerr.Errorf(sigilerr.CodeSPARQLTemplateInvalid, "template slot %q has no value", s.name)
		}
		used[s.name] = true
		rendered, err := renderSlot(s, v)
		if err != nil {
			return nil, err
		}
		sb.WriteString(t.text[last:s.start])
		sb.WriteString(rendered)
		last = s.end
	}
	sb.WriteString(t.text[last:])

	for name := range values {
		if !used[name] {
			return nil, sigilerr.Errorf(sigilerr.CodeSPARQLTemplateInvalid, "template has no slot %q", name)
		}
	}
	return Parse(sb.String())
}

func renderSlot(s slot, v any) (string, error) {
	invalid := func(format string, args ...any) error {
		return sigilerr.New(sigilerr.CodeSPARQLTemplateInvalid,
			fmt.Sprintf("template slot %q: ", s.name)+fmt.Sprintf(format, args...),
			sigilerr.Field("slot", s.name),
		)
	}

	switch s.kind {
	case SlotIRI:
		str, ok := v.(string)
		if !ok || str == "" {
			return "", invalid("expected a non-empty IRI string")
		}
		return "<" + EscapeIRI(str) + ">", nil
	case SlotIRIs:
		list, ok := v.([]string)
		if !ok {
			return "", invalid("expected a list of IRIs")
		}
		parts := make([]string, 0, len(list))
		for _, iri := range list {
			parts = append(parts, "<"+EscapeIRI(iri)+">")
		}
		return strings.Join(parts, " "), nil
	case SlotLiteral:
		str, ok := v.(string)
		if !ok {
			return "", invalid("expected a string")
		}
		return `"` + EscapeString(str) + `"`, nil
	case SlotInt:
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int64:
			n = x
		default:
			return "", invalid("expected an integer")
		}
		if n < 0 {
			return "", invalid("expected a non-negative integer, got %d", n)
		}
		return strconv.FormatInt(n, 10), nil
	case SlotPath:
		str, ok := v.(string)
		if !ok {
			return "", invalid("expected a property path")
		}
		if _, err := ParsePath(str); err != nil {
			return "", err
		}
		return str, nil
	case SlotName:
		str, ok := v.(string)
		if !ok || !namePattern.MatchString(str) {
			return "", invalid("expected a local name, got %q", v)
		}
		return str, nil
	}
	return "", invalid("unknown slot kind %s", s.kind)
}

// EscapeIRI escapes characters that may not appear inside <...> as \uXXXX.
func EscapeIRI(iri string) string {
	var sb strings.Builder
	for _, r := range iri {
		if r <= 0x20 || strings.ContainsRune(`<>"{}|^`+"`\\", r) {
			fmt.Fprintf(&sb, `\u%04X`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// EscapeString escapes s for use inside a double-quoted literal.
func EscapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
