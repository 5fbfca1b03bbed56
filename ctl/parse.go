package ctl

import (
	"strings"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Compiler resolves the names in queries against a network.
//
// A bare name is a symbol if the network declares it, otherwise a
// location of some component.  "C.L" is location L of component C.
// "deadlock" is the deadlock test unless it's a symbol.
type Compiler struct {
	Symbols symbols.Table

	// Locations maps component names to their location names.
	// When nil, any unknown bare name is taken to be a location.
	Locations map[string]map[string]bool
}

// NewCompiler makes a Compiler for the network, which may be nil.
func NewCompiler(n *core.Network) *Compiler {
	c := &Compiler{}
	if n == nil {
		return c
	}
	c.Symbols = n.External.Copy().Merge(n.Symbols)
	c.Locations = make(map[string]map[string]bool, len(n.Components))
	for name, comp := range n.Components {
		ls := make(map[string]bool, len(comp.Locations))
		for l := range comp.Locations {
			ls[l] = true
		}
		c.Locations[name] = ls
	}
	return c
}

// Compile parses the query text.
func (c *Compiler) Compile(text string) (*Query, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, &QuerySyntaxError{Query: text, Reason: "empty"}
	}

	if s[0] == '!' {
		return c.negation(s)
	}

	var quantifier Op
	switch s[0] {
	case 'E':
		quantifier = OpExists
	case 'A':
		quantifier = OpForall
	default:
		return nil, &QuerySyntaxError{Query: text, Reason: "expected E or A"}
	}
	rest := strings.TrimSpace(s[1:])

	var path *Query
	switch {
	case strings.HasPrefix(rest, "[]"):
		body, err := c.body(rest[2:])
		if err != nil {
			return nil, err
		}
		path = &Query{Op: OpGlobally, Args: []*Query{body}}
	case strings.HasPrefix(rest, "<>"):
		body, err := c.body(rest[2:])
		if err != nil {
			return nil, err
		}
		path = &Query{Op: OpFinally, Args: []*Query{body}}
	case strings.HasPrefix(rest, "["):
		if !strings.HasSuffix(rest, "]") {
			return nil, &QuerySyntaxError{Query: text, Reason: "missing ]"}
		}
		left, right, ok := splitUntil(rest[1 : len(rest)-1])
		if !ok {
			return nil, &QuerySyntaxError{Query: text, Reason: "expected [φ U ψ]"}
		}
		l, err := c.body(left)
		if err != nil {
			return nil, err
		}
		r, err := c.body(right)
		if err != nil {
			return nil, err
		}
		path = &Query{Op: OpUntil, Args: []*Query{l, r}}
	case pathOp(rest) != 0:
		body, err := c.body(rest[1:])
		if err != nil {
			return nil, err
		}
		path = &Query{Op: pathOp(rest), Args: []*Query{body}}
	default:
		return nil, &QuerySyntaxError{Query: text, Reason: "expected F, G, X, <>, [], or [φ U ψ] after the quantifier"}
	}

	return &Query{
		Op:     quantifier,
		Args:   []*Query{path},
		Source: s,
	}, nil
}

// negation handles a negated root: !E F φ is A G !φ and !A G φ is
// E F !φ.  Other negated roots compile but aren't reachability
// queries.
func (c *Compiler) negation(s string) (*Query, error) {
	inner := strings.TrimSpace(s[1:])
	if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		inner = inner[1 : len(inner)-1]
	}
	q, err := c.Compile(inner)
	if err != nil {
		return nil, err
	}
	q.Source = ""

	var r *Query
	switch {
	case q.Op == OpExists && q.Args[0].Op == OpFinally:
		r = AG(negate(q.Args[0].Args[0]))
	case q.Op == OpForall && q.Args[0].Op == OpGlobally:
		r = EF(negate(q.Args[0].Args[0]))
	case q.Op == OpNot:
		r = q.Args[0]
	default:
		r = Not(q)
	}
	r.Source = s
	return r, nil
}

func negate(q *Query) *Query {
	if q.Op == OpNot {
		return q.Args[0]
	}
	return Not(q)
}

// MustCompile panics on error.
func (c *Compiler) MustCompile(text string) *Query {
	q, err := c.Compile(text)
	if err != nil {
		panic(err)
	}
	return q
}

func pathOp(s string) Op {
	if s == "" {
		return 0
	}
	if 1 < len(s) && !strings.ContainsRune(" \t\n(!", rune(s[1])) {
		return 0
	}
	switch s[0] {
	case 'F':
		return OpFinally
	case 'G':
		return OpGlobally
	case 'X':
		return OpNext
	}
	return 0
}

// splitUntil splits at the first " U " outside of parentheses.
func splitUntil(s string) (string, string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case 'U':
			if depth == 0 && 0 < i && i+1 < len(s) && s[i-1] == ' ' && s[i+1] == ' ' {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

func (c *Compiler) body(src string) (*Query, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &QuerySyntaxError{Query: src, Reason: "missing state formula"}
	}
	x, diags := hclsyntax.ParseExpression([]byte(src), src, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &expr.SyntaxError{Source: src, Diags: diags}
	}
	return c.convert(src, x)
}

func (c *Compiler) convert(src string, x hclsyntax.Expression) (*Query, error) {
	switch vv := x.(type) {
	case *hclsyntax.ParenthesesExpr:
		return c.convert(src, vv.Expression)
	case *hclsyntax.UnaryOpExpr:
		if vv.Op == hclsyntax.OpLogicalNot {
			q, err := c.convert(src, vv.Val)
			if err != nil {
				return nil, err
			}
			return Not(q), nil
		}
	case *hclsyntax.BinaryOpExpr:
		if vv.Op == hclsyntax.OpLogicalAnd || vv.Op == hclsyntax.OpLogicalOr {
			l, err := c.convert(src, vv.LHS)
			if err != nil {
				return nil, err
			}
			r, err := c.convert(src, vv.RHS)
			if err != nil {
				return nil, err
			}
			if vv.Op == hclsyntax.OpLogicalAnd {
				return And(l, r), nil
			}
			return Or(l, r), nil
		}
	case *hclsyntax.LiteralValueExpr:
		if vv.Val.Type() == cty.Bool && vv.Val.IsKnown() {
			return Literal(vv.Val.True()), nil
		}
	case *hclsyntax.ScopeTraversalExpr:
		if q, ok, err := c.name(vv.Traversal); ok || err != nil {
			return q, err
		}
	}

	text := slice(src, x)
	var ctx []symbols.Table
	if c.Symbols != nil {
		ctx = append(ctx, c.Symbols)
	}
	e, err := expr.Compile(text, ctx...)
	if err != nil {
		return nil, err
	}
	return Comparison(e), nil
}

// name resolves a traversal that might be a location test or the
// deadlock keyword.  Symbols fall through to comparisons.
func (c *Compiler) name(t hcl.Traversal) (*Query, bool, error) {
	root := t.RootName()
	switch len(t) {
	case 1:
		if c.Symbols.Has(root) {
			return nil, false, nil
		}
		if root == "deadlock" {
			return Deadlock(), true, nil
		}
		if c.Locations == nil {
			return Location("", root), true, nil
		}
		for _, ls := range c.Locations {
			if ls[root] {
				return Location("", root), true, nil
			}
		}
		return nil, false, &UnknownName{Name: root}
	case 2:
		attr, is := t[1].(hcl.TraverseAttr)
		if !is {
			return nil, false, nil
		}
		if c.Locations == nil || c.Locations[root][attr.Name] {
			return Location(root, attr.Name), true, nil
		}
		return nil, false, &UnknownName{Name: root + "." + attr.Name}
	}
	return nil, false, nil
}

func slice(src string, x hclsyntax.Expression) string {
	r := x.Range()
	if r.Start.Byte < 0 || len(src) < r.End.Byte || r.End.Byte < r.Start.Byte {
		return src
	}
	return src[r.Start.Byte:r.End.Byte]
}
