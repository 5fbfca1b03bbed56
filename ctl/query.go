// Package ctl represents, parses, and loads the reachability queries
// that package verifier answers.
//
// The supported shapes are "E F φ" (also written "EF φ" or "E<> φ")
// and "A G φ" ("AG φ", "A[] φ").  Other temporal forms (E G, A F,
// E X, A X, E[φ U ψ], A[φ U ψ]) parse but are unsupported.
package ctl

import (
	"strings"

	"github.com/Comcast/ntta/expr"
)

// Op is the kind of a Query node.
type Op int

const (
	OpLocation Op = iota
	OpDeadlock
	OpAnd
	OpOr
	OpNot
	OpComparison
	OpLiteral

	OpExists
	OpForall
	OpGlobally
	OpFinally
	OpNext
	OpUntil
)

var opNames = map[Op]string{
	OpLocation:   "location",
	OpDeadlock:   "deadlock",
	OpAnd:        "and",
	OpOr:         "or",
	OpNot:        "not",
	OpComparison: "comparison",
	OpLiteral:    "literal",
	OpExists:     "exists",
	OpForall:     "forall",
	OpGlobally:   "globally",
	OpFinally:    "finally",
	OpNext:       "next",
	OpUntil:      "until",
}

func (op Op) String() string {
	if s, have := opNames[op]; have {
		return s
	}
	return "unknown"
}

// Temporal reports whether the op is a quantifier or a path operator.
func (op Op) Temporal() bool {
	return OpExists <= op
}

// Query is a node in a query's syntax tree.
type Query struct {
	Op Op `json:"op"`

	// Component is optional for OpLocation.  Without it, any
	// component at Location satisfies the test.
	Component string `json:"component,omitempty"`
	Location  string `json:"location,omitempty"`

	// Expr is the OpComparison's expression.
	Expr *expr.Expr `json:"-"`

	// Value is the OpLiteral's value.
	Value bool `json:"value,omitempty"`

	Args []*Query `json:"args,omitempty"`

	// Source is the text the query was compiled from.  Only the
	// root has it.
	Source string `json:"source,omitempty"`
}

func Location(component, location string) *Query {
	return &Query{Op: OpLocation, Component: component, Location: location}
}

func Deadlock() *Query {
	return &Query{Op: OpDeadlock}
}

func Literal(b bool) *Query {
	return &Query{Op: OpLiteral, Value: b}
}

func Comparison(e *expr.Expr) *Query {
	return &Query{Op: OpComparison, Expr: e}
}

func And(a, b *Query) *Query { return &Query{Op: OpAnd, Args: []*Query{a, b}} }
func Or(a, b *Query) *Query  { return &Query{Op: OpOr, Args: []*Query{a, b}} }
func Not(q *Query) *Query    { return &Query{Op: OpNot, Args: []*Query{q}} }

// EF makes E F q.
func EF(q *Query) *Query {
	return &Query{Op: OpExists, Args: []*Query{{Op: OpFinally, Args: []*Query{q}}}}
}

// AG makes A G q.
func AG(q *Query) *Query {
	return &Query{Op: OpForall, Args: []*Query{{Op: OpGlobally, Args: []*Query{q}}}}
}

// Reachability returns the state formula to search for.
//
// For E F φ, that's φ.  For A G φ, it's ¬φ, and negated is true: a
// state satisfying the formula is a counterexample.  Any other shape
// is an *UnsupportedQuery.
func (q *Query) Reachability() (target *Query, negated bool, err error) {
	if q == nil || len(q.Args) != 1 || len(q.Args[0].Args) != 1 {
		return nil, false, &UnsupportedQuery{Query: q.String()}
	}
	path := q.Args[0]
	body := path.Args[0]
	switch {
	case q.Op == OpExists && path.Op == OpFinally:
		target = body
	case q.Op == OpForall && path.Op == OpGlobally:
		target, negated = Not(body), true
	default:
		return nil, false, &UnsupportedQuery{Query: q.String()}
	}
	if body.temporal() {
		return nil, false, &UnsupportedQuery{Query: q.String(), Reason: "nested temporal operator"}
	}
	return target, negated, nil
}

func (q *Query) temporal() bool {
	if q.Op.Temporal() {
		return true
	}
	for _, a := range q.Args {
		if a.temporal() {
			return true
		}
	}
	return false
}

// String renders the query.  The root renders its Source if it has
// one.
func (q *Query) String() string {
	if q == nil {
		return "nil"
	}
	if q.Source != "" {
		return q.Source
	}
	var b strings.Builder
	q.render(&b)
	return b.String()
}

func (q *Query) render(b *strings.Builder) {
	arg := func(i int) {
		if i < len(q.Args) {
			q.Args[i].render(b)
		} else {
			b.WriteString("?")
		}
	}
	switch q.Op {
	case OpLocation:
		if q.Component != "" {
			b.WriteString(q.Component)
			b.WriteByte('.')
		}
		b.WriteString(q.Location)
	case OpDeadlock:
		b.WriteString("deadlock")
	case OpLiteral:
		if q.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case OpComparison:
		if q.Expr == nil {
			b.WriteString("?")
		} else {
			b.WriteString(q.Expr.Source)
		}
	case OpAnd, OpOr:
		op := " && "
		if q.Op == OpOr {
			op = " || "
		}
		b.WriteByte('(')
		arg(0)
		b.WriteString(op)
		arg(1)
		b.WriteByte(')')
	case OpNot:
		b.WriteString("!")
		arg(0)
	case OpExists, OpForall:
		if q.Op == OpExists {
			b.WriteString("E")
		} else {
			b.WriteString("A")
		}
		if 0 < len(q.Args) && q.Args[0].Op == OpUntil {
			arg(0)
			return
		}
		b.WriteByte(' ')
		arg(0)
	case OpGlobally, OpFinally, OpNext:
		b.WriteString(map[Op]string{OpGlobally: "G", OpFinally: "F", OpNext: "X"}[q.Op])
		b.WriteByte(' ')
		arg(0)
	case OpUntil:
		b.WriteByte('[')
		arg(0)
		b.WriteString(" U ")
		arg(1)
		b.WriteByte(']')
	}
}
