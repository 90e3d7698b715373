// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

func (p *parser) groupGraphPattern() *GroupPattern {
	p.expectPunct("{")
	if p.atKeyword("SELECT") {
		sub := p.selectQuery(true)
		p.expectPunct("}")
		return &GroupPattern{Elements: []Node{&SubSelect{Query: sub}}}
	}

	g := &GroupPattern{}
	for {
		tok := p.peek()
		if tok.kind == tokPunct && tok.text == "}" {
			break
		}
		switch {
		case p.startsTerm(tok):
			g.Elements = append(g.Elements, p.triplesBlock())
		case tok.kind == tokPunct && tok.text == "{":
			g.Elements = append(g.Elements, p.groupOrUnion())
		case p.isKeyword(tok, "OPTIONAL"):
			p.advance()
			g.Elements = append(g.Elements, &Optional{Group: p.groupGraphPattern()})
		case p.isKeyword(tok, "MINUS"):
			p.advance()
			g.Elements = append(g.Elements, &Minus{Group: p.groupGraphPattern()})
		case p.isKeyword(tok, "GRAPH"):
			p.advance()
			name := p.varOrIRI(RolePattern)
			g.Elements = append(g.Elements, &Graph{Name: name, Group: p.groupGraphPattern()})
		case p.isKeyword(tok, "SERVICE"):
			p.advance()
			s := &Service{Silent: p.acceptKeyword("SILENT")}
			s.Endpoint = p.varOrIRI(RoleService)
			s.Group = p.groupGraphPattern()
			g.Elements = append(g.Elements, s)
		case p.isKeyword(tok, "FILTER"):
			p.advance()
			g.Elements = append(g.Elements, &Filter{Expr: p.constraint()})
		case p.isKeyword(tok, "BIND"):
			p.advance()
			p.expectPunct("(")
			expr := p.expression()
			p.expectKeyword("AS")
			v := p.expectVar()
			p.expectPunct(")")
			g.Elements = append(g.Elements, &Bind{Expr: expr, Var: v})
		case p.isKeyword(tok, "VALUES"):
			g.Elements = append(g.Elements, p.inlineData())
		default:
			p.fail(tok.start, "GroupGraphPatternSub")
		}
		p.acceptPunct(".")
	}
	p.expectPunct("}")
	return g
}

func (p *parser) groupOrUnion() Node {
	first := p.groupGraphPattern()
	if !p.atKeyword("UNION") {
		return first
	}
	u := &Union{Groups: []*GroupPattern{first}}
	for p.acceptKeyword("UNION") {
		u.Groups = append(u.Groups, p.groupGraphPattern())
	}
	return u
}

func (p *parser) triplesBlock() *TriplesBlock {
	b := &TriplesBlock{}
	for {
		b.Triples = append(b.Triples, p.triplesSameSubject(true)...)
		if !p.atPunct(".") {
			break
		}
		p.advance()
		if !p.startsTerm(p.peek()) {
			break
		}
	}
	return b
}

// triplesTemplate parses the triples of a CONSTRUCT template up to end.
func (p *parser) triplesTemplate(end string) *TriplesBlock {
	b := &TriplesBlock{}
	for !p.atPunct(end) {
		b.Triples = append(b.Triples, p.triplesSameSubject(false)...)
		if !p.acceptPunct(".") {
			break
		}
	}
	return b
}

func (p *parser) triplesSameSubject(paths bool) []*Triple {
	tok := p.peek()
	next := p.peekAt(1)
	switch {
	case tok.kind == tokPunct && tok.text == "[" && !(next.kind == tokPunct && next.text == "]"):
		subj, triples := p.blankNodeList(paths)
		if p.startsVerb(p.peek()) {
			triples = append(triples, p.propertyList(subj, paths)...)
		}
		return triples
	case tok.kind == tokPunct && tok.text == "(" && !(next.kind == tokPunct && next.text == ")"):
		subj, triples := p.collection(paths)
		if p.startsVerb(p.peek()) {
			triples = append(triples, p.propertyList(subj, paths)...)
		}
		return triples
	}
	subj := p.graphTerm(RolePattern)
	if !p.startsVerb(p.peek()) {
		p.fail(p.peek().start, "PropertyListPathNotEmpty")
	}
	return p.propertyList(subj, paths)
}

func (p *parser) startsVerb(tok token) bool {
	switch tok.kind {
	case tokVar, tokIRI, tokPName:
		return true
	case tokName:
		return tok.text == "a"
	case tokPunct:
		return tok.text == "^" || tok.text == "(" || tok.text == "!"
	}
	return false
}

// propertyList parses verb objectList ( ';' ( verb objectList )? )*.
// The returned triples all share subj; nested blank nodes contribute theirs too.
func (p *parser) propertyList(subj Node, paths bool) []*Triple {
	var out []*Triple
	for {
		var verb Node
		tok := p.peek()
		switch {
		case tok.kind == tokVar:
			verb = p.varTerm()
		case paths:
			verb = p.path()
		case tok.kind == tokName && tok.text == "a":
			p.advance()
			verb = &Term{Kind: TermIRI, Value: rdfType, Span: Span{tok.start, tok.end}}
		default:
			verb = p.iri(RolePattern)
		}
		for {
			obj, nested := p.graphNode(paths)
			out = append(out, &Triple{Subject: subj, Pred: verb, Object: obj})
			out = append(out, nested...)
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.atPunct(";") {
			return out
		}
		for p.acceptPunct(";") {
		}
		if !p.startsVerb(p.peek()) {
			return out
		}
	}
}

// graphNode parses an object: a term, a blank node property list or a collection.
func (p *parser) graphNode(paths bool) (Node, []*Triple) {
	tok := p.peek()
	next := p.peekAt(1)
	switch {
	case tok.kind == tokPunct && tok.text == "[" && !(next.kind == tokPunct && next.text == "]"):
		return p.blankNodeList(paths)
	case tok.kind == tokPunct && tok.text == "(" && !(next.kind == tokPunct && next.text == ")"):
		return p.collection(paths)
	}
	return p.graphTerm(RolePattern), nil
}

func (p *parser) blankNodeList(paths bool) (Node, []*Triple) {
	p.expectPunct("[")
	list := &BlankNodeList{}
	list.Triples = p.propertyList(nil, paths)
	p.expectPunct("]")
	return list, nil
}

func (p *parser) collection(paths bool) (Node, []*Triple) {
	p.expectPunct("(")
	c := &Collection{}
	var nested []*Triple
	for !p.atPunct(")") {
		item, more := p.graphNode(paths)
		c.Items = append(c.Items, item)
		nested = append(nested, more...)
	}
	p.expectPunct(")")
	return c, nested
}

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// ---------------------------------------------------------------------------
// Property paths
// ---------------------------------------------------------------------------

func (p *parser) path() Node {
	first := p.pathSequence()
	if !p.atPunct("|") {
		return first
	}
	alt := &Path{Kind: PathAlternative, Parts: []Node{first}}
	for p.acceptPunct("|") {
		alt.Parts = append(alt.Parts, p.pathSequence())
	}
	return alt
}

func (p *parser) pathSequence() Node {
	first := p.pathEltOrInverse()
	if !p.atPunct("/") {
		return first
	}
	seq := &Path{Kind: PathSequence, Parts: []Node{first}}
	for p.acceptPunct("/") {
		seq.Parts = append(seq.Parts, p.pathEltOrInverse())
	}
	return seq
}

func (p *parser) pathEltOrInverse() Node {
	if p.acceptPunct("^") {
		return &Path{Kind: PathInverse, Parts: []Node{p.pathElt()}}
	}
	return p.pathElt()
}

func (p *parser) pathElt() Node {
	prim := p.pathPrimary()
	tok := p.peek()
	if tok.kind != tokPunct {
		return prim
	}
	switch tok.text {
	case "*":
		p.advance()
		return &Path{Kind: PathZeroOrMore, Parts: []Node{prim}}
	case "+":
		p.advance()
		return &Path{Kind: PathOneOrMore, Parts: []Node{prim}}
	case "?":
		p.advance()
		return &Path{Kind: PathZeroOrOne, Parts: []Node{prim}}
	}
	return prim
}

func (p *parser) pathPrimary() Node {
	tok := p.peek()
	switch {
	case isIRIToken(tok):
		return p.iri(RolePattern)
	case tok.kind == tokName && tok.text == "a":
		p.advance()
		return &Term{Kind: TermIRI, Value: rdfType, Span: Span{tok.start, tok.end}}
	case tok.kind == tokPunct && tok.text == "!":
		p.advance()
		neg := &Path{Kind: PathNegated}
		if p.acceptPunct("(") {
			for !p.atPunct(")") {
				neg.Parts = append(neg.Parts, p.pathOneInPropertySet())
				if !p.acceptPunct("|") {
					break
				}
			}
			p.expectPunct(")")
		} else {
			neg.Parts = append(neg.Parts, p.pathOneInPropertySet())
		}
		return neg
	case tok.kind == tokPunct && tok.text == "(":
		p.advance()
		inner := p.path()
		p.expectPunct(")")
		return inner
	}
	p.fail(tok.start, "PathPrimary")
	return nil
}

func (p *parser) pathOneInPropertySet() Node {
	inverse := p.acceptPunct("^")
	var n Node
	if tok := p.peek(); tok.kind == tokName && tok.text == "a" {
		p.advance()
		n = &Term{Kind: TermIRI, Value: rdfType, Span: Span{tok.start, tok.end}}
	} else {
		n = p.iri(RolePattern)
	}
	if inverse {
		return &Path{Kind: PathInverse, Parts: []Node{n}}
	}
	return n
}

// ---------------------------------------------------------------------------
// VALUES
// ---------------------------------------------------------------------------

func (p *parser) inlineData() *InlineData {
	p.expectKeyword("VALUES")
	d := &InlineData{}
	if p.peek().kind == tokVar {
		d.Vars = []*Term{p.varTerm()}
		p.expectPunct("{")
		for !p.atPunct("}") {
			d.Rows = append(d.Rows, []*Term{p.dataValue()})
		}
		p.expectPunct("}")
		return d
	}

	p.expectPunct("(")
	for p.peek().kind == tokVar {
		d.Vars = append(d.Vars, p.varTerm())
	}
	p.expectPunct(")")
	p.expectPunct("{")
	for !p.atPunct("}") {
		start := p.expectPunct("(").start
		var row []*Term
		for !p.atPunct(")") {
			row = append(row, p.dataValue())
		}
		if len(row) != len(d.Vars) {
			p.fail(start, "DataBlockValue")
		}
		p.expectPunct(")")
		d.Rows = append(d.Rows, row)
	}
	p.expectPunct("}")
	return d
}

func (p *parser) dataValue() *Term {
	tok := p.peek()
	if p.isKeyword(tok, "UNDEF") {
		p.advance()
		return nil
	}
	switch tok.kind {
	case tokIRI, tokPName, tokString, tokInteger, tokDecimal, tokDouble, tokName, tokPunct:
		if tok.kind == tokPunct && tok.text != "+" && tok.text != "-" {
			break
		}
		return p.graphTerm(RoleValues)
	}
	p.fail(tok.start, "DataBlockValue")
	return nil
}
