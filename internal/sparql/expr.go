// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

import "strings"

// builtins lists the SPARQL 1.1 built-in call names, including aggregates.
var builtins = map[string]bool{
	"STR": true, "LANG": true, "LANGMATCHES": true, "DATATYPE": true, "BOUND": true,
	"IRI": true, "URI": true, "BNODE": true, "RAND": true, "ABS": true, "CEIL": true,
	"FLOOR": true, "ROUND": true, "CONCAT": true, "STRLEN": true, "UCASE": true,
	"LCASE": true, "ENCODE_FOR_URI": true, "CONTAINS": true, "STRSTARTS": true,
	"STRENDS": true, "STRBEFORE": true, "STRAFTER": true, "YEAR": true, "MONTH": true,
	"DAY": true, "HOURS": true, "MINUTES": true, "SECONDS": true, "TIMEZONE": true,
	"TZ": true, "NOW": true, "UUID": true, "STRUUID": true, "MD5": true, "SHA1": true,
	"SHA256": true, "SHA384": true, "SHA512": true, "COALESCE": true, "IF": true,
	"STRLANG": true, "STRDT": true, "SAMETERM": true, "ISIRI": true, "ISURI": true,
	"ISBLANK": true, "ISLITERAL": true, "ISNUMERIC": true, "REGEX": true, "SUBSTR": true,
	"REPLACE": true, "EXISTS": true, "NOT": true,
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true, "AVG": true, "SAMPLE": true,
	"GROUP_CONCAT": true,
}

var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true, "AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

// startsCall reports whether tok begins a built-in or IRI function call.
func (p *parser) startsCall(tok token) bool {
	if tok.kind == tokName {
		return builtins[strings.ToUpper(tok.text)]
	}
	if isIRIToken(tok) {
		next := p.peekAt(1)
		return next.kind == tokPunct && next.text == "("
	}
	return false
}

// constraint is a bracketted expression, a built-in call or a function call.
func (p *parser) constraint() Node {
	if p.acceptPunct("(") {
		expr := p.expression()
		p.expectPunct(")")
		return expr
	}
	if !p.startsCall(p.peek()) {
		p.fail(p.peek().start, "Constraint")
	}
	return p.primary()
}

func (p *parser) expression() Node {
	x := p.andExpr()
	for p.acceptPunct("||") {
		x = &Binary{Op: "||", X: x, Y: p.andExpr()}
	}
	return x
}

func (p *parser) andExpr() Node {
	x := p.relational()
	for p.acceptPunct("&&") {
		x = &Binary{Op: "&&", X: x, Y: p.relational()}
	}
	return x
}

func (p *parser) relational() Node {
	x := p.additive()
	tok := p.peek()
	if tok.kind == tokPunct {
		switch tok.text {
		case "=", "!=", "<", ">", "<=", ">=":
			p.advance()
			return &Binary{Op: tok.text, X: x, Y: p.additive()}
		}
	}
	not := false
	if p.isKeyword(tok, "NOT") && p.isKeyword(p.peekAt(1), "IN") {
		p.advance()
		not = true
	}
	if p.acceptKeyword("IN") {
		return &In{Not: not, X: x, List: p.expressionList()}
	}
	return x
}

func (p *parser) expressionList() []Node {
	p.expectPunct("(")
	var list []Node
	for !p.atPunct(")") {
		list = append(list, p.expression())
		if !p.acceptPunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return list
}

func (p *parser) additive() Node {
	x := p.multiplicative()
	for {
		tok := p.peek()
		if tok.kind != tokPunct || (tok.text != "+" && tok.text != "-") {
			return x
		}
		p.advance()
		x = &Binary{Op: tok.text, X: x, Y: p.multiplicative()}
	}
}

func (p *parser) multiplicative() Node {
	x := p.unary()
	for {
		tok := p.peek()
		if tok.kind != tokPunct || (tok.text != "*" && tok.text != "/") {
			return x
		}
		p.advance()
		x = &Binary{Op: tok.text, X: x, Y: p.unary()}
	}
}

func (p *parser) unary() Node {
	tok := p.peek()
	if tok.kind == tokPunct && (tok.text == "!" || tok.text == "+" || tok.text == "-") {
		p.advance()
		return &Unary{Op: tok.text, X: p.primary()}
	}
	return p.primary()
}

func (p *parser) primary() Node {
	tok := p.peek()
	switch tok.kind {
	case tokPunct:
		if tok.text == "(" {
			p.advance()
			x := p.expression()
			p.expectPunct(")")
			return x
		}
	case tokVar:
		return p.varTerm()
	case tokString:
		return p.literal(RoleExpression)
	case tokInteger, tokDecimal, tokDouble:
		return p.graphTerm(RoleExpression)
	case tokIRI, tokPName:
		fn := p.iri(RoleExpression)
		if !p.atPunct("(") {
			return fn
		}
		fn.Role = RoleFunction
		call := &Call{Func: fn}
		p.advance()
		if p.acceptPunct(")") {
			return call
		}
		call.Distinct = p.acceptKeyword("DISTINCT")
		for {
			call.Args = append(call.Args, p.expression())
			if !p.acceptPunct(",") {
				break
			}
		}
		p.expectPunct(")")
		return call
	case tokName:
		name := strings.ToUpper(tok.text)
		switch {
		case name == "TRUE" || name == "FALSE":
			return p.graphTerm(RoleExpression)
		case name == "NOT" || name == "EXISTS":
			p.advance()
			not := name == "NOT"
			if not {
				p.expectKeyword("EXISTS")
			}
			return &Exists{Not: not, Group: p.groupGraphPattern()}
		case builtins[name]:
			return p.builtinCall(name)
		}
	}
	p.fail(tok.start, "PrimaryExpression")
	return nil
}

func (p *parser) builtinCall(name string) Node {
	p.advance()
	call := &Call{Name: name}
	p.expectPunct("(")
	if aggregates[name] {
		call.Distinct = p.acceptKeyword("DISTINCT")
		if name == "COUNT" && p.acceptPunct("*") {
			call.Star = true
			p.expectPunct(")")
			return call
		}
		call.Args = append(call.Args, p.expression())
		if name == "GROUP_CONCAT" && p.acceptPunct(";") {
			p.expectKeyword("SEPARATOR")
			p.expectPunct("=")
			if p.peek().kind != tokString {
				p.fail(p.peek().start, "String")
			}
			call.Args = append(call.Args, p.literal(RoleExpression))
		}
		p.expectPunct(")")
		return call
	}
	for !p.atPunct(")") {
		call.Args = append(call.Args, p.expression())
		if !p.acceptPunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return call
}
