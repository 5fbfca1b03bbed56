// Package expr compiles and evaluates the guard, update and condition
// expressions of a network.
//
// Expressions use HCL's native expression syntax: numbers, strings,
// true/false, arithmetic, comparisons, &&, ||, !, parentheses and the
// conditional operator.  Values are evaluated through cty and
// converted to and from symbols.Value at the edges.
package expr

import (
	"sort"
	"strings"

	"github.com/Comcast/ntta/symbols"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions are available to every expression.
var Functions = map[string]function.Function{
	"abs":   stdlib.AbsoluteFunc,
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
	"floor": stdlib.FloorFunc,
	"ceil":  stdlib.CeilFunc,
}

// Expr is a compiled expression.
type Expr struct {
	// Source is the text of the expression.  Expressions built by
	// Not, And, and Or get a synthesized Source.
	Source string

	x     hclsyntax.Expression
	names []string
}

var trueLiteral = &hclsyntax.LiteralValueExpr{Val: cty.True}

// True is the expression that always holds.  An empty guard compiles
// to True.
var True = &Expr{Source: "true", x: trueLiteral}

// Compile parses the source.
//
// When one or more context tables are given, every identifier must be
// defined by one of them (static binding); otherwise the first missing
// name is reported as an *UnknownIdentifier.  Without a context,
// identifiers are resolved when the expression is evaluated.
func Compile(src string, context ...symbols.Table) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return True, nil
	}
	// The source doubles as the filename so that sub-expression ranges
	// can be mapped back to text.
	x, diags := hclsyntax.ParseExpression([]byte(src), src, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &SyntaxError{Source: src, Diags: diags}
	}
	e := &Expr{
		Source: src,
		x:      x,
		names:  rootNames(x),
	}
	if 0 < len(context) {
		if name, ok := resolved(e.names, context); !ok {
			return nil, &UnknownIdentifier{Name: name, Source: src}
		}
	}
	return e, nil
}

// MustCompile panics on error.  For tests and literals.
func MustCompile(src string, context ...symbols.Table) *Expr {
	e, err := Compile(src, context...)
	if err != nil {
		panic(err)
	}
	return e
}

func resolved(names []string, context []symbols.Table) (string, bool) {
NAMES:
	for _, name := range names {
		for _, t := range context {
			if t.Has(name) {
				continue NAMES
			}
		}
		return name, false
	}
	return "", true
}

func rootNames(x hclsyntax.Expression) []string {
	seen := make(map[string]bool)
	var acc []string
	for _, t := range x.Variables() {
		name := t.RootName()
		if !seen[name] {
			seen[name] = true
			acc = append(acc, name)
		}
	}
	sort.Strings(acc)
	return acc
}

func (e *Expr) String() string {
	return e.Source
}

// Identifiers returns the sorted names referenced by the expression.
func (e *Expr) Identifiers() []string {
	return e.names
}

// Mentions reports whether the expression references the name.
func (e *Expr) Mentions(name string) bool {
	i := sort.SearchStrings(e.names, name)
	return i < len(e.names) && e.names[i] == name
}

// IsTrue reports whether the expression is the literal true.
func (e *Expr) IsTrue() bool {
	if e == nil || e == True {
		return true
	}
	if lit, is := e.x.(*hclsyntax.LiteralValueExpr); is {
		return lit.Val.RawEquals(cty.True)
	}
	return false
}

// lookup consults the environments in order.
func lookup(name string, envs []symbols.Table) (symbols.Value, bool) {
	for _, env := range envs {
		if v, have := env[name]; have {
			return v, true
		}
	}
	return symbols.Value{}, false
}

func (e *Expr) evalContext(envs []symbols.Table) (*hcl.EvalContext, error) {
	vars := make(map[string]cty.Value, len(e.names))
	for _, name := range e.names {
		v, have := lookup(name, envs)
		if !have {
			return nil, &symbols.UndefinedSymbol{Name: name}
		}
		vars[name] = toCty(v)
	}
	return &hcl.EvalContext{
		Variables: vars,
		Functions: Functions,
	}, nil
}

// Eval evaluates the expression.  Environments are consulted in
// order, so the first one that defines a name wins.
//
// A missing name is an *symbols.UndefinedSymbol.  Operand problems
// are *TypeMismatch errors.
func (e *Expr) Eval(envs ...symbols.Table) (symbols.Value, error) {
	if e.IsTrue() {
		return symbols.BoolVal(true), nil
	}
	ctx, err := e.evalContext(envs)
	if err != nil {
		return symbols.Value{}, err
	}
	if err = e.typeCheck(envs); err != nil {
		return symbols.Value{}, err
	}
	v, diags := e.x.Value(ctx)
	if diags.HasErrors() {
		return symbols.Value{}, &TypeMismatch{Source: e.Source, Detail: diagDetail(diags)}
	}
	r, err := fromCty(v)
	if err != nil {
		return symbols.Value{}, &TypeMismatch{Source: e.Source, Detail: err.Error()}
	}
	return r, nil
}

// Holds evaluates the expression as a boolean.
func (e *Expr) Holds(envs ...symbols.Table) (bool, error) {
	v, err := e.Eval(envs...)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, &TypeMismatch{Source: e.Source, Detail: "result is a " + v.Kind().String() + ", not a bool"}
	}
	return b, nil
}

// Not returns the negation.
func Not(e *Expr) *Expr {
	if e.IsTrue() {
		return &Expr{Source: "false", x: &hclsyntax.LiteralValueExpr{Val: cty.False}}
	}
	return &Expr{
		Source: "!(" + e.Source + ")",
		x: &hclsyntax.UnaryOpExpr{
			Op:  hclsyntax.OpLogicalNot,
			Val: e.x,
		},
		names: e.names,
	}
}

// And returns the conjunction, which is True for no arguments.
func And(es ...*Expr) *Expr {
	return join(hclsyntax.OpLogicalAnd, " && ", True, es)
}

// Or returns the disjunction, which is false for no arguments.
func Or(es ...*Expr) *Expr {
	return join(hclsyntax.OpLogicalOr, " || ", Not(True), es)
}

func join(op *hclsyntax.Operation, sep string, unit *Expr, es []*Expr) *Expr {
	switch len(es) {
	case 0:
		return unit
	case 1:
		return es[0]
	}
	var (
		x     = es[0].x
		srcs  = []string{"(" + es[0].Source + ")"}
		names = append([]string(nil), es[0].names...)
	)
	for _, e := range es[1:] {
		x = &hclsyntax.BinaryOpExpr{LHS: x, Op: op, RHS: e.x}
		srcs = append(srcs, "("+e.Source+")")
		names = append(names, e.names...)
	}
	return &Expr{
		Source: strings.Join(srcs, sep),
		x:      x,
		names:  dedup(names),
	}
}

func dedup(names []string) []string {
	sort.Strings(names)
	acc := names[:0]
	for i, name := range names {
		if i == 0 || name != names[i-1] {
			acc = append(acc, name)
		}
	}
	return acc
}
