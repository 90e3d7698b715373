// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"cmp"
	"slices"
	"strings"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// CorrectionKind names a silent prefix fix applied during normalization.
type CorrectionKind string

const (
	CorrectionRewritten CorrectionKind = "rewritten"
	CorrectionInjected  CorrectionKind = "injected"
)

// Correction records one prefix fix.
type Correction struct {
	Kind   CorrectionKind `json:"kind"`
	Prefix string         `json:"prefix"`
	From   string         `json:"from,omitempty"`
	To     string         `json:"to"`
}

// Normalized is a query whose prefixes agree with the registry.
type Normalized struct {
	Query       *Query
	Corrections []Correction
}

// Text returns the finalized query text.
func (n *Normalized) Text() string { return n.Query.Text }

type edit struct {
	span Span
	text string
}

// Normalize reconciles the prefixes referenced by q with its declarations and
// the registry. A declaration that disagrees with the registry is rewritten
// to the registry's namespace; a registry prefix that is used but not
// declared is injected in front of the query. Prefixes that are neither
// declared nor registered are reported together in one error. A query that
// needs no fix is returned unchanged.
func Normalize(q *Query, reg *Registry) (*Normalized, error) {
	var (
		undefined   []string
		injected    []string
		edits       []edit
		corrections []Correction
	)

	for _, prefix := range q.ReferencedPrefixes() {
		canonical, known := reg.Lookup(prefix)
		declared, isDeclared := q.Declared(prefix)
		switch {
		case isDeclared && (!known || declared == canonical):
		case isDeclared:
			for _, d := range q.Prefixes {
				if d.Prefix != prefix || d.Namespace == canonical {
					continue
				}
				edits = append(edits, edit{span: d.IRISpan, text: "<" + EscapeIRI(canonical) + ">"})
				corrections = append(corrections, Correction{
					Kind: CorrectionRewritten, Prefix: prefix, From: d.Namespace, To: canonical,
				})
			}
		case known:
			injected = append(injected, "PREFIX "+prefix+": <"+EscapeIRI(canonical)+">")
			corrections = append(corrections, Correction{Kind: CorrectionInjected, Prefix: prefix, To: canonical})
		default:
			undefined = append(undefined, prefix)
		}
	}

	if len(undefined) > 0 {
		return nil, sigilerr.New(sigilerr.CodeSPARQLPrefixUndefined,
			"The following prefixes are undefined: "+strings.Join(undefined, ", "),
			sigilerr.FieldPrefixes(undefined),
		)
	}
	if len(corrections) == 0 {
		return &Normalized{Query: q}, nil
	}

	text := q.Text
	slices.SortFunc(edits, func(a, b edit) int { return cmp.Compare(b.span.Start, a.span.Start) })
	for _, e := range edits {
		text = text[:e.span.Start] + e.text + text[e.span.End:]
	}
	if len(injected) > 0 {
		text = strings.Join(injected, " ") + " " + text
	}

	final, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return &Normalized{Query: final, Corrections: corrections}, nil
}
