// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// bailout carries a finished error out of the recursive descent.
type bailout struct{ err error }

type parser struct {
	src  string
	lx   lexer
	buf  []token
	form string // production named in diagnostics once a query form is chosen

	base     string
	prefixes map[string]string
	decls    []PrefixDecl
}

func newParser(src string) *parser {
	return &parser{src: src, lx: lexer{src: src}, prefixes: map[string]string{}}
}

func (p *parser) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	fn()
	return nil
}

// fail aborts with a syntax error at off. Inside a query form the diagnostic
// names the form; detail records the specific production for logs.
func (p *parser) fail(off int, detail string) {
	expected := p.form
	if expected == "" {
		expected = anyQueryForm
	}
	panic(bailout{newSyntaxError(p.src, off, expected, detail)})
}

func (p *parser) peekAt(i int) token {
	for len(p.buf) <= i {
		tok, err := p.lx.next()
		if err != nil {
			var le *lexError
			if errors.As(err, &le) {
				p.fail(le.off, le.detail)
			}
			p.fail(p.lx.pos, err.Error())
		}
		p.buf = append(p.buf, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	if i >= len(p.buf) {
		return p.buf[len(p.buf)-1]
	}
	return p.buf[i]
}

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) advance() token {
	tok := p.peek()
	if tok.kind != tokEOF {
		p.buf = p.buf[1:]
	}
	return tok
}

func (p *parser) isKeyword(tok token, kw string) bool {
	return tok.kind == tokName && strings.EqualFold(tok.text, kw)
}

func (p *parser) atKeyword(kw string) bool { return p.isKeyword(p.peek(), kw) }

func (p *parser) atPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.atPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) token {
	if !p.atKeyword(kw) {
		p.fail(p.peek().start, "'"+kw+"'")
	}
	return p.advance()
}

func (p *parser) expectPunct(s string) token {
	if !p.atPunct(s) {
		p.fail(p.peek().start, "'"+s+"'")
	}
	return p.advance()
}

var updateKeywords = map[string]bool{
	"DELETE": true, "INSERT": true, "LOAD": true, "CLEAR": true, "CREATE": true,
	"DROP": true, "COPY": true, "MOVE": true, "ADD": true, "WITH": true,
}

// parseQuery parses Prologue, one query form and the trailing VALUES clause.
func (p *parser) parseQuery() *QueryNode {
	p.prologue()

	tok := p.peek()
	var q *QueryNode
	word := ""
	if tok.kind == tokName {
		word = strings.ToUpper(tok.text)
	}
	switch word {
	case "SELECT":
		p.form = "SelectQuery"
		q = p.selectQuery(false)
	case "CONSTRUCT":
		p.form = "ConstructQuery"
		q = p.constructQuery()
	case "DESCRIBE":
		p.form = "DescribeQuery"
		q = p.describeQuery()
	case "ASK":
		p.form = "AskQuery"
		q = p.askQuery()
	default:
		if updateKeywords[word] {
			panic(bailout{newUnsupportedError(p.src, tok.start)})
		}
		p.fail(tok.start, "query form")
	}

	if p.atKeyword("VALUES") {
		q.Values = p.inlineData()
	}
	if end := p.peek(); end.kind != tokEOF {
		panic(bailout{newSyntaxError(p.src, end.start, "end of text", "trailing input")})
	}
	return q
}

func (p *parser) prologue() {
	for {
		switch {
		case p.atKeyword("BASE"):
			p.advance()
			tok := p.peek()
			if tok.kind != tokIRI {
				p.fail(tok.start, "BaseDecl")
			}
			p.advance()
			p.base = p.resolve(tok.value)
		case p.atKeyword("PREFIX"):
			start := p.advance().start
			name := p.peek()
			if name.kind != tokPName || name.local != "" {
				p.fail(name.start, "PrefixDecl")
			}
			p.advance()
			iri := p.peek()
			if iri.kind != tokIRI {
				p.fail(iri.start, "PrefixDecl")
			}
			p.advance()
			ns := p.resolve(iri.value)
			p.prefixes[name.pfx] = ns
			p.decls = append(p.decls, PrefixDecl{
				Prefix:    name.pfx,
				Namespace: ns,
				IRISpan:   Span{Start: iri.start, End: iri.end},
				Span:      Span{Start: start, End: iri.end},
			})
		default:
			return
		}
	}
}

func (p *parser) resolve(iri string) string {
	if p.base == "" {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil || ref.IsAbs() {
		return iri
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return iri
	}
	return base.ResolveReference(ref).String()
}

// ---------------------------------------------------------------------------
// Query forms
// ---------------------------------------------------------------------------

func (p *parser) selectQuery(sub bool) *QueryNode {
	q := &QueryNode{Type: Select}
	p.expectKeyword("SELECT")
	if p.acceptKeyword("DISTINCT") {
		q.Distinct = true
	} else if p.acceptKeyword("REDUCED") {
		q.Reduced = true
	}

	if p.acceptPunct("*") {
		q.Star = true
	} else {
		for {
			tok := p.peek()
			if tok.kind == tokVar {
				q.Projection = append(q.Projection, &Projection{Var: p.varTerm()})
				continue
			}
			if tok.kind == tokPunct && tok.text == "(" {
				p.advance()
				expr := p.expression()
				p.expectKeyword("AS")
				v := p.expectVar()
				p.expectPunct(")")
				q.Projection = append(q.Projection, &Projection{Expr: expr, Var: v})
				continue
			}
			break
		}
		if len(q.Projection) == 0 {
			p.fail(p.peek().start, "SelectClause")
		}
	}

	if !sub {
		q.Datasets = p.datasetClauses()
	}
	p.acceptKeyword("WHERE")
	q.Where = p.groupGraphPattern()
	p.solutionModifiers(q)
	if sub && p.atKeyword("VALUES") {
		q.Values = p.inlineData()
	}
	return q
}

func (p *parser) constructQuery() *QueryNode {
	q := &QueryNode{Type: Construct}
	p.expectKeyword("CONSTRUCT")
	if p.atPunct("{") {
		p.advance()
		q.Template = p.triplesTemplate("}")
		p.expectPunct("}")
		q.Datasets = p.datasetClauses()
		p.acceptKeyword("WHERE")
		q.Where = p.groupGraphPattern()
	} else {
		q.Datasets = p.datasetClauses()
		p.expectKeyword("WHERE")
		p.expectPunct("{")
		q.Template = p.triplesTemplate("}")
		p.expectPunct("}")
		q.Where = &GroupPattern{Elements: []Node{q.Template}}
	}
	p.solutionModifiers(q)
	return q
}

func (p *parser) describeQuery() *QueryNode {
	q := &QueryNode{Type: Describe}
	p.expectKeyword("DESCRIBE")
	if p.acceptPunct("*") {
		q.Star = true
	} else {
		for {
			tok := p.peek()
			if tok.kind != tokVar && tok.kind != tokIRI && tok.kind != tokPName {
				break
			}
			q.Describe = append(q.Describe, p.varOrIRI(RoleDescribe))
		}
		if len(q.Describe) == 0 {
			p.fail(p.peek().start, "DescribeClause")
		}
	}
	q.Datasets = p.datasetClauses()
	if p.acceptKeyword("WHERE") || p.atPunct("{") {
		q.Where = p.groupGraphPattern()
	}
	p.solutionModifiers(q)
	return q
}

func (p *parser) askQuery() *QueryNode {
	q := &QueryNode{Type: Ask}
	p.expectKeyword("ASK")
	q.Datasets = p.datasetClauses()
	p.acceptKeyword("WHERE")
	q.Where = p.groupGraphPattern()
	p.solutionModifiers(q)
	return q
}

func (p *parser) datasetClauses() []*Dataset {
	var out []*Dataset
	for p.acceptKeyword("FROM") {
		d := &Dataset{Named: p.acceptKeyword("NAMED")}
		d.Graph = p.iri(RoleDataset)
		out = append(out, d)
	}
	return out
}

func (p *parser) solutionModifiers(q *QueryNode) {
	if p.atKeyword("GROUP") {
		p.advance()
		p.expectKeyword("BY")
		for {
			tok := p.peek()
			switch {
			case tok.kind == tokVar:
				q.GroupBy = append(q.GroupBy, p.varTerm())
				continue
			case tok.kind == tokPunct && tok.text == "(":
				p.advance()
				expr := p.expression()
				if p.acceptKeyword("AS") {
					expr = &Projection{Expr: expr, Var: p.expectVar()}
				}
				p.expectPunct(")")
				q.GroupBy = append(q.GroupBy, expr)
				continue
			case p.startsCall(tok):
				q.GroupBy = append(q.GroupBy, p.primary())
				continue
			}
			break
		}
		if len(q.GroupBy) == 0 {
			p.fail(p.peek().start, "GroupCondition")
		}
	}
	if p.acceptKeyword("HAVING") {
		for p.atPunct("(") || p.startsCall(p.peek()) {
			q.Having = append(q.Having, p.constraint())
		}
		if len(q.Having) == 0 {
			p.fail(p.peek().start, "HavingCondition")
		}
	}
	if p.atKeyword("ORDER") {
		p.advance()
		p.expectKeyword("BY")
		for {
			tok := p.peek()
			switch {
			case p.isKeyword(tok, "ASC") || p.isKeyword(tok, "DESC"):
				p.advance()
				p.expectPunct("(")
				expr := p.expression()
				p.expectPunct(")")
				q.OrderBy = append(q.OrderBy, &OrderCondition{Desc: p.isKeyword(tok, "DESC"), Expr: expr})
				continue
			case tok.kind == tokVar:
				q.OrderBy = append(q.OrderBy, &OrderCondition{Expr: p.varTerm()})
				continue
			case (tok.kind == tokPunct && tok.text == "(") || p.startsCall(tok):
				q.OrderBy = append(q.OrderBy, &OrderCondition{Expr: p.constraint()})
				continue
			}
			break
		}
		if len(q.OrderBy) == 0 {
			p.fail(p.peek().start, "OrderCondition")
		}
	}
	for i := 0; i < 2; i++ {
		switch {
		case p.atKeyword("LIMIT"):
			p.advance()
			q.Limit = p.integer()
		case p.atKeyword("OFFSET"):
			p.advance()
			q.Offset = p.integer()
		}
	}
}

func (p *parser) integer() int64 {
	tok := p.peek()
	if tok.kind != tokInteger {
		p.fail(tok.start, "INTEGER")
	}
	p.advance()
	n, err := strconv.ParseInt(tok.text, 10, 64)
	if err != nil {
		p.fail(tok.start, "INTEGER")
	}
	return n
}

// ---------------------------------------------------------------------------
// Terms
// ---------------------------------------------------------------------------

func (p *parser) varTerm() *Term {
	tok := p.advance()
	return &Term{Kind: TermVar, Value: tok.value, Span: Span{tok.start, tok.end}}
}

func (p *parser) expectVar() *Term {
	if p.peek().kind != tokVar {
		p.fail(p.peek().start, "Var")
	}
	return p.varTerm()
}

// iri parses an IRIREF or prefixed name.
func (p *parser) iri(role Role) *Term {
	tok := p.peek()
	switch tok.kind {
	case tokIRI:
		p.advance()
		return &Term{Kind: TermIRI, Value: p.resolve(tok.value), Role: role, Span: Span{tok.start, tok.end}}
	case tokPName:
		p.advance()
		t := &Term{Kind: TermPrefixedName, Prefix: tok.pfx, Local: tok.local, Role: role, Span: Span{tok.start, tok.end}}
		if ns, ok := p.prefixes[tok.pfx]; ok {
			t.Value = ns + tok.local
		}
		return t
	}
	p.fail(tok.start, "iri")
	return nil
}

func (p *parser) varOrIRI(role Role) *Term {
	if p.peek().kind == tokVar {
		return p.varTerm()
	}
	return p.iri(role)
}

func isIRIToken(tok token) bool { return tok.kind == tokIRI || tok.kind == tokPName }

// graphTerm parses a variable or RDF term in a pattern or data block.
func (p *parser) graphTerm(role Role) *Term {
	tok := p.peek()
	switch tok.kind {
	case tokVar:
		return p.varTerm()
	case tokIRI, tokPName:
		return p.iri(role)
	case tokBlank:
		p.advance()
		return &Term{Kind: TermBlank, Value: tok.value, Span: Span{tok.start, tok.end}}
	case tokString:
		return p.literal(role)
	case tokInteger, tokDecimal, tokDouble:
		p.advance()
		return &Term{Kind: TermNumber, Value: tok.text, Span: Span{tok.start, tok.end}}
	case tokName:
		if p.isKeyword(tok, "true") || p.isKeyword(tok, "false") {
			p.advance()
			return &Term{Kind: TermBoolean, Value: strings.ToLower(tok.text), Span: Span{tok.start, tok.end}}
		}
	case tokPunct:
		switch tok.text {
		case "+", "-":
			if n := p.peekAt(1); (n.kind == tokInteger || n.kind == tokDecimal || n.kind == tokDouble) && n.start == tok.end {
				p.advance()
				p.advance()
				return &Term{Kind: TermNumber, Value: tok.text + n.text, Span: Span{tok.start, n.end}}
			}
		case "(":
			if n := p.peekAt(1); n.kind == tokPunct && n.text == ")" {
				p.advance()
				p.advance()
				return &Term{Kind: TermNil, Span: Span{tok.start, n.end}}
			}
		case "[":
			if n := p.peekAt(1); n.kind == tokPunct && n.text == "]" {
				p.advance()
				p.advance()
				return &Term{Kind: TermBlank, Span: Span{tok.start, n.end}}
			}
		}
	}
	p.fail(tok.start, "GraphTerm")
	return nil
}

func (p *parser) literal(role Role) *Term {
	tok := p.advance()
	t := &Term{Kind: TermLiteral, Value: tok.value, Role: role, Span: Span{tok.start, tok.end}}
	switch next := p.peek(); {
	case next.kind == tokLang:
		p.advance()
		t.Lang = next.value
		t.Span.End = next.end
	case next.kind == tokPunct && next.text == "^^":
		p.advance()
		t.Datatype = p.iri(RoleDatatype)
		t.Span.End = t.Datatype.Span.End
	}
	return t
}

func (p *parser) startsTerm(tok token) bool {
	switch tok.kind {
	case tokVar, tokIRI, tokPName, tokBlank, tokString, tokInteger, tokDecimal, tokDouble:
		return true
	case tokName:
		return p.isKeyword(tok, "true") || p.isKeyword(tok, "false")
	case tokPunct:
		return tok.text == "(" || tok.text == "[" || tok.text == "+" || tok.text == "-"
	}
	return false
}
