package expr

import (
	"fmt"

	"github.com/Comcast/ntta/symbols"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// class is what the operator checks care about: numbers of any kind
// are interchangeable.
type class int

const (
	anyClass class = iota
	numClass
	boolClass
	strClass
)

func (c class) String() string {
	switch c {
	case numClass:
		return "number"
	case boolClass:
		return "bool"
	case strClass:
		return "string"
	}
	return "any"
}

func kindClass(k symbols.Kind) class {
	switch {
	case k.Numeric():
		return numClass
	case k == symbols.Bool:
		return boolClass
	case k == symbols.String:
		return strClass
	}
	return anyClass
}

func typeClass(t cty.Type) class {
	switch {
	case t.Equals(cty.Number):
		return numClass
	case t.Equals(cty.Bool):
		return boolClass
	case t.Equals(cty.String):
		return strClass
	}
	return anyClass
}

// typeCheck infers the class of x with the symbol kinds found in
// envs.  cty would otherwise convert "3" to 3 and "true" to true.
// Names missing from envs are left to evaluation.
func (e *Expr) typeCheck(envs []symbols.Table) error {
	c := checker{src: e.Source, envs: envs}
	_, err := c.infer(e.x)
	return err
}

type checker struct {
	src  string
	envs []symbols.Table
}

func (c *checker) mismatch(format string, args ...interface{}) error {
	return &TypeMismatch{Source: c.src, Detail: fmt.Sprintf(format, args...)}
}

// want checks that x's class is cl (or can't be known yet).
func (c *checker) want(x hclsyntax.Expression, what string, cl class) error {
	got, err := c.infer(x)
	if err != nil {
		return err
	}
	if got != anyClass && got != cl {
		return c.mismatch("%s needs a %s operand, not a %s", what, cl, got)
	}
	return nil
}

func (c *checker) infer(x hclsyntax.Expression) (class, error) {
	switch vv := x.(type) {
	case *hclsyntax.LiteralValueExpr:
		return typeClass(vv.Val.Type()), nil

	case *hclsyntax.TemplateExpr:
		return strClass, nil

	case *hclsyntax.TemplateWrapExpr:
		return c.infer(vv.Wrapped)

	case *hclsyntax.ParenthesesExpr:
		return c.infer(vv.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		v, have := lookup(vv.Traversal.RootName(), c.envs)
		if !have {
			return anyClass, nil
		}
		return kindClass(v.Kind()), nil

	case *hclsyntax.UnaryOpExpr:
		switch vv.Op {
		case hclsyntax.OpLogicalNot:
			return boolClass, c.want(vv.Val, "!", boolClass)
		case hclsyntax.OpNegate:
			return numClass, c.want(vv.Val, "-", numClass)
		}

	case *hclsyntax.BinaryOpExpr:
		return c.binary(vv)

	case *hclsyntax.ConditionalExpr:
		if err := c.want(vv.Condition, "?:", boolClass); err != nil {
			return anyClass, err
		}
		a, err := c.infer(vv.TrueResult)
		if err != nil {
			return anyClass, err
		}
		b, err := c.infer(vv.FalseResult)
		if err != nil {
			return anyClass, err
		}
		switch {
		case a == anyClass:
			return b, nil
		case b == anyClass || a == b:
			return a, nil
		}
		return anyClass, c.mismatch("?: branches are a %s and a %s", a, b)

	case *hclsyntax.FunctionCallExpr:
		for _, arg := range vv.Args {
			if err := c.want(arg, vv.Name+"()", numClass); err != nil {
				return anyClass, err
			}
		}
		return numClass, nil
	}
	return anyClass, nil
}

func (c *checker) binary(x *hclsyntax.BinaryOpExpr) (class, error) {
	var (
		operand, result class
		what            string
	)
	switch x.Op {
	case hclsyntax.OpLogicalAnd:
		operand, result, what = boolClass, boolClass, "&&"
	case hclsyntax.OpLogicalOr:
		operand, result, what = boolClass, boolClass, "||"
	case hclsyntax.OpAdd:
		operand, result, what = numClass, numClass, "+"
	case hclsyntax.OpSubtract:
		operand, result, what = numClass, numClass, "-"
	case hclsyntax.OpMultiply:
		operand, result, what = numClass, numClass, "*"
	case hclsyntax.OpDivide:
		operand, result, what = numClass, numClass, "/"
	case hclsyntax.OpModulo:
		operand, result, what = numClass, numClass, "%"
	case hclsyntax.OpGreaterThan:
		operand, result, what = numClass, boolClass, ">"
	case hclsyntax.OpGreaterThanOrEqual:
		operand, result, what = numClass, boolClass, ">="
	case hclsyntax.OpLessThan:
		operand, result, what = numClass, boolClass, "<"
	case hclsyntax.OpLessThanOrEqual:
		operand, result, what = numClass, boolClass, "<="
	case hclsyntax.OpEqual, hclsyntax.OpNotEqual:
		a, err := c.infer(x.LHS)
		if err != nil {
			return anyClass, err
		}
		b, err := c.infer(x.RHS)
		if err != nil {
			return anyClass, err
		}
		if a != anyClass && b != anyClass && a != b {
			return anyClass, c.mismatch("can't compare a %s with a %s", a, b)
		}
		return boolClass, nil
	default:
		return anyClass, nil
	}

	if err := c.want(x.LHS, what, operand); err != nil {
		return anyClass, err
	}
	if err := c.want(x.RHS, what, operand); err != nil {
		return anyClass, err
	}
	return result, nil
}
