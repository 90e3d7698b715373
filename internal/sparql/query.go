// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package sparql parses SPARQL 1.1 queries into a syntax tree and reconciles
// their prefixes against a namespace registry.
package sparql

import (
	"cmp"
	"slices"
	"strings"
)

// QueryType is the top-level form of a read-only query.
type QueryType string

const (
	Select    QueryType = "SELECT"
	Ask       QueryType = "ASK"
	Construct QueryType = "CONSTRUCT"
	Describe  QueryType = "DESCRIBE"
)

// Graph reports whether the form returns RDF triples rather than bindings.
func (t QueryType) Graph() bool { return t == Construct || t == Describe }

// PrefixDecl is a PREFIX declaration as written in the prologue.
type PrefixDecl struct {
	Prefix    string
	Namespace string
	// IRISpan covers the <...> token, Span the whole declaration.
	IRISpan Span
	Span    Span
}

// PrefixedName is one occurrence of prefix:local in the query body.
type PrefixedName struct {
	Prefix string
	Local  string
	// IRI is the expansion under the declared namespace, empty when the
	// prefix is not declared.
	IRI  string
	Role Role
	Span Span
}

// IRIRef is one occurrence of a full <IRI> in the query body.
type IRIRef struct {
	IRI  string
	Role Role
	Span Span
}

// Query is a parsed read-only query.
type Query struct {
	Text          string
	Type          QueryType
	Base          string
	Prefixes      []PrefixDecl
	PrefixedNames []PrefixedName
	IRIs          []IRIRef
	Tree          *QueryNode
}

// Parse classifies and parses text. Update forms fail with an unsupported
// query type error; anything else that is not a query fails with a syntax
// error carrying a positional diagnostic.
func Parse(text string) (*Query, error) {
	p := newParser(text)
	var tree *QueryNode
	if err := p.run(func() { tree = p.parseQuery() }); err != nil {
		return nil, err
	}

	q := &Query{
		Text:     text,
		Type:     tree.Type,
		Base:     p.base,
		Prefixes: p.decls,
		Tree:     tree,
	}
	Inspect(tree, func(n Node) bool {
		t, ok := n.(*Term)
		if !ok {
			return true
		}
		switch t.Kind {
		case TermPrefixedName:
			q.PrefixedNames = append(q.PrefixedNames, PrefixedName{
				Prefix: t.Prefix, Local: t.Local, IRI: t.Value, Role: t.Role, Span: t.Span,
			})
		case TermIRI:
			// 'a' is synthesized and has no IRI token of its own.
			if t.Span.End-t.Span.Start > 1 {
				q.IRIs = append(q.IRIs, IRIRef{IRI: t.Value, Role: t.Role, Span: t.Span})
			}
		}
		return true
	})
	return q, nil
}

// ParsePath parses text as a standalone property path.
func ParsePath(text string) (Node, error) {
	p := newParser(text)
	p.form = "PropertyPath"
	var path Node
	err := p.run(func() {
		path = p.path()
		if end := p.peek(); end.kind != tokEOF {
			p.fail(end.start, "end of text")
		}
	})
	if err != nil {
		return nil, err
	}
	return path, nil
}

// Declared returns the namespace of the last declaration of prefix.
func (q *Query) Declared(prefix string) (string, bool) {
	ns, ok := "", false
	for _, d := range q.Prefixes {
		if d.Prefix == prefix {
			ns, ok = d.Namespace, true
		}
	}
	return ns, ok
}

// ReferencedPrefixes returns the distinct prefixes used in the body, in
// first-seen order.
func (q *Query) ReferencedPrefixes() []string {
	seen := map[string]bool{}
	var out []string
	for _, pn := range q.PrefixedNames {
		if !seen[pn.Prefix] {
			seen[pn.Prefix] = true
			out = append(out, pn.Prefix)
		}
	}
	return out
}

// storedRoles are the positions in which a term must name a stored resource.
var storedRoles = map[Role]bool{
	RolePattern:    true,
	RoleDataset:    true,
	RoleExpression: true,
	RoleValues:     true,
	RoleDescribe:   true,
}

// ResourceIRIs returns the distinct IRIs, full or expanded from prefixed
// names, that the query expects to exist in the store, in first-seen order.
// IRIs under any of the excluded namespaces are skipped, as are datatype,
// function and service IRIs.
func (q *Query) ResourceIRIs(excluded []string) []string {
	type occurrence struct {
		iri   string
		role  Role
		start int
	}
	var all []occurrence
	for _, r := range q.IRIs {
		all = append(all, occurrence{r.IRI, r.Role, r.Span.Start})
	}
	for _, pn := range q.PrefixedNames {
		all = append(all, occurrence{pn.IRI, pn.Role, pn.Span.Start})
	}
	slices.SortStableFunc(all, func(a, b occurrence) int { return cmp.Compare(a.start, b.start) })

	seen := map[string]bool{}
	var out []string
	for _, o := range all {
		if o.iri == "" || !storedRoles[o.role] || seen[o.iri] || hasAnyPrefix(o.iri, excluded) {
			continue
		}
		seen[o.iri] = true
		out = append(out, o.iri)
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
