// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sparql

// Node is any element of a parsed query.
type Node interface {
	children() []Node
}

// Span is a half-open byte range in the query text.
type Span struct {
	Start int
	End   int
}

// Role records where a term appears, which decides whether it can name a
// stored resource.
type Role int

const (
	RolePattern Role = iota // subject, predicate or object of a pattern or template
	RoleDatatype
	RoleFunction
	RoleDataset
	RoleService
	RoleExpression
	RoleValues
	RoleDescribe
)

func (r Role) String() string {
	switch r {
	case RolePattern:
		return "pattern"
	case RoleDatatype:
		return "datatype"
	case RoleFunction:
		return "function"
	case RoleDataset:
		return "dataset"
	case RoleService:
		return "service"
	case RoleExpression:
		return "expression"
	case RoleValues:
		return "values"
	case RoleDescribe:
		return "describe"
	}
	return "unknown"
}

// TermKind distinguishes the lexical kinds of RDF terms.
type TermKind int

const (
	TermIRI TermKind = iota
	TermPrefixedName
	TermVar
	TermBlank
	TermLiteral
	TermNumber
	TermBoolean
	TermNil
)

// Term is a leaf of the tree: an IRI, prefixed name, variable, blank node or literal.
type Term struct {
	Kind  TermKind
	Value string // IRI (resolved against BASE), variable name, label or lexical form
	// Prefix and Local are set for prefixed names.
	Prefix string
	Local  string
	// Datatype and Lang are set for typed and language-tagged literals.
	Datatype *Term
	Lang     string
	Role     Role
	Span     Span
}

func (t *Term) children() []Node {
	if t.Datatype != nil {
		return []Node{t.Datatype}
	}
	return nil
}

// Triple is one subject/predicate/object pattern. Pred is a *Term or a path.
type Triple struct {
	Subject Node
	Pred    Node
	Object  Node
}

func (t *Triple) children() []Node { return []Node{t.Subject, t.Pred, t.Object} }

// BlankNodeList is a [ p o ; ... ] blank node property list.
type BlankNodeList struct {
	Triples []*Triple // subjects are nil
}

func (b *BlankNodeList) children() []Node { return tripleNodes(b.Triples) }

// Collection is an RDF list ( a b c ).
type Collection struct {
	Items []Node
}

func (c *Collection) children() []Node { return c.Items }

// PathKind enumerates property path operators.
type PathKind int

const (
	PathSequence PathKind = iota
	PathAlternative
	PathInverse
	PathZeroOrMore
	PathOneOrMore
	PathZeroOrOne
	PathNegated
)

// Path is a property path expression over predicate terms.
type Path struct {
	Kind  PathKind
	Parts []Node
}

func (p *Path) children() []Node { return p.Parts }

// TriplesBlock is a run of triple patterns inside a group or template.
type TriplesBlock struct {
	Triples []*Triple
}

func (b *TriplesBlock) children() []Node { return tripleNodes(b.Triples) }

// GroupPattern is { ... }.
type GroupPattern struct {
	Elements []Node
}

func (g *GroupPattern) children() []Node { return g.Elements }

type Optional struct{ Group *GroupPattern }

func (o *Optional) children() []Node { return []Node{o.Group} }

type Minus struct{ Group *GroupPattern }

func (m *Minus) children() []Node { return []Node{m.Group} }

type Union struct{ Groups []*GroupPattern }

func (u *Union) children() []Node {
	out := make([]Node, 0, len(u.Groups))
	for _, g := range u.Groups {
		out = append(out, g)
	}
	return out
}

type Graph struct {
	Name  *Term
	Group *GroupPattern
}

func (g *Graph) children() []Node { return []Node{g.Name, g.Group} }

type Service struct {
	Silent   bool
	Endpoint *Term
	Group    *GroupPattern
}

func (s *Service) children() []Node { return []Node{s.Endpoint, s.Group} }

type Filter struct{ Expr Node }

func (f *Filter) children() []Node { return []Node{f.Expr} }

type Bind struct {
	Expr Node
	Var  *Term
}

func (b *Bind) children() []Node { return []Node{b.Expr, b.Var} }

// InlineData is a VALUES block. A nil cell is UNDEF.
type InlineData struct {
	Vars []*Term
	Rows [][]*Term
}

func (d *InlineData) children() []Node {
	out := make([]Node, 0, len(d.Vars))
	for _, v := range d.Vars {
		out = append(out, v)
	}
	for _, row := range d.Rows {
		for _, cell := range row {
			if cell != nil {
				out = append(out, cell)
			}
		}
	}
	return out
}

// SubSelect is a nested SELECT inside a group.
type SubSelect struct{ Query *QueryNode }

func (s *SubSelect) children() []Node { return []Node{s.Query} }

// Binary is an infix expression.
type Binary struct {
	Op   string
	X, Y Node
}

func (b *Binary) children() []Node { return []Node{b.X, b.Y} }

// Unary is !x, +x or -x.
type Unary struct {
	Op string
	X  Node
}

func (u *Unary) children() []Node { return []Node{u.X} }

// Call is a built-in call, aggregate or IRI function call. Func is set for
// IRI functions and Name for built-ins.
type Call struct {
	Name     string
	Func     *Term
	Args     []Node
	Distinct bool
	Star     bool
}

func (c *Call) children() []Node {
	out := make([]Node, 0, len(c.Args)+1)
	if c.Func != nil {
		out = append(out, c.Func)
	}
	return append(out, c.Args...)
}

// Exists is EXISTS { } or NOT EXISTS { }.
type Exists struct {
	Not   bool
	Group *GroupPattern
}

func (e *Exists) children() []Node { return []Node{e.Group} }

// In is x IN (...) or x NOT IN (...).
type In struct {
	Not  bool
	X    Node
	List []Node
}

func (i *In) children() []Node { return append([]Node{i.X}, i.List...) }

// Projection is one SELECT item: a variable or (expr AS ?v).
type Projection struct {
	Expr Node
	Var  *Term
}

func (p *Projection) children() []Node {
	if p.Expr == nil {
		return []Node{p.Var}
	}
	return []Node{p.Expr, p.Var}
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Desc bool
	Expr Node
}

func (o *OrderCondition) children() []Node { return []Node{o.Expr} }

// Dataset is FROM or FROM NAMED.
type Dataset struct {
	Named bool
	Graph *Term
}

func (d *Dataset) children() []Node { return []Node{d.Graph} }

// QueryNode is the root of a query form or a sub-select.
type QueryNode struct {
	Type       QueryType
	Distinct   bool
	Reduced    bool
	Star       bool
	Projection []*Projection
	Template   *TriplesBlock
	Describe   []*Term
	Datasets   []*Dataset
	Where      *GroupPattern
	GroupBy    []Node
	Having     []Node
	OrderBy    []*OrderCondition
	Limit      int64
	Offset     int64
	Values     *InlineData
}

func (q *QueryNode) children() []Node {
	var out []Node
	for _, p := range q.Projection {
		out = append(out, p)
	}
	if q.Template != nil {
		out = append(out, q.Template)
	}
	for _, d := range q.Describe {
		out = append(out, d)
	}
	for _, d := range q.Datasets {
		out = append(out, d)
	}
	if q.Where != nil {
		out = append(out, q.Where)
	}
	out = append(out, q.GroupBy...)
	out = append(out, q.Having...)
	for _, o := range q.OrderBy {
		out = append(out, o)
	}
	if q.Values != nil {
		out = append(out, q.Values)
	}
	return out
}

func tripleNodes(ts []*Triple) []Node {
	out := make([]Node, 0, len(ts))
	for _, t := range ts {
		out = append(out, t)
	}
	return out
}

// Inspect traverses the tree depth-first in source order, calling f for each
// node. If f returns false the node's children are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range n.children() {
		if c == nil {
			continue
		}
		Inspect(c, f)
	}
}
