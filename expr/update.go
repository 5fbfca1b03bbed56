package expr

import (
	"strings"

	"github.com/Comcast/ntta/symbols"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Update is a single assignment "target := expression".
type Update struct {
	Target string
	Expr   *Expr
}

func (u *Update) String() string {
	return u.Target + " := " + u.Expr.Source
}

// Updates is an ordered collection of assignments.
//
// Apply uses simultaneous assignment: every right-hand side sees the
// environment as it was before any of the updates.  ApplySequential
// chains them instead.
type Updates []*Update

// CompileUpdates parses statements like "x := x - 1; y := true".
// Statements are separated by semicolons or newlines, and "=" is
// accepted in place of ":=".
//
// As with Compile, given context tables require every identifier
// (targets included) to be defined.
func CompileUpdates(src string, context ...symbols.Table) (Updates, error) {
	var acc Updates
	for _, stmt := range splitStatements(src) {
		target, rhs, ok := splitAssignment(stmt)
		if !ok {
			return nil, &SyntaxError{Source: stmt}
		}
		if target == "" {
			return nil, EmptyTarget
		}
		if !hclsyntax.ValidIdentifier(target) {
			return nil, &SyntaxError{Source: stmt}
		}
		if 0 < len(context) {
			if _, ok := resolved([]string{target}, context); !ok {
				return nil, &UnknownIdentifier{Name: target, Source: stmt}
			}
		}
		if strings.TrimSpace(rhs) == "" {
			return nil, &SyntaxError{Source: stmt}
		}
		e, err := Compile(rhs, context...)
		if err != nil {
			return nil, err
		}
		acc = append(acc, &Update{
			Target: target,
			Expr:   e,
		})
	}
	return acc, nil
}

// splitStatements splits on ';' and newlines outside of string
// literals.
func splitStatements(src string) []string {
	var (
		acc     []string
		start   int
		quoted  bool
		escaped bool
	)
	flush := func(end int) {
		if s := strings.TrimSpace(src[start:end]); s != "" {
			acc = append(acc, s)
		}
		start = end + 1
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case !quoted && (c == ';' || c == '\n'):
			flush(i)
		}
	}
	flush(len(src))
	return acc
}

// splitAssignment finds the first ":=" or lone "=" outside a string.
func splitAssignment(stmt string) (string, string, bool) {
	quoted := false
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		if c == '"' {
			quoted = !quoted
			continue
		}
		if quoted {
			continue
		}
		if c == ':' && i+1 < len(stmt) && stmt[i+1] == '=' {
			return strings.TrimSpace(stmt[:i]), stmt[i+2:], true
		}
		if c == '=' {
			if i+1 < len(stmt) && stmt[i+1] == '=' {
				return "", "", false
			}
			if 0 < i && strings.IndexByte("!<>=", stmt[i-1]) >= 0 {
				return "", "", false
			}
			return strings.TrimSpace(stmt[:i]), stmt[i+1:], true
		}
	}
	return "", "", false
}

// Targets returns the assigned names in order (with repeats).
func (us Updates) Targets() []string {
	acc := make([]string, len(us))
	for i, u := range us {
		acc[i] = u.Target
	}
	return acc
}

func (us Updates) String() string {
	ss := make([]string, len(us))
	for i, u := range us {
		ss[i] = u.String()
	}
	return strings.Join(ss, "; ")
}

// Apply evaluates every right-hand side against the given
// environments and returns the resulting assignments as a delta.
// None of the updates sees the effect of another.  When a target is
// assigned twice, the later assignment wins.
func (us Updates) Apply(envs ...symbols.Table) (symbols.Table, error) {
	delta := symbols.NewTable()
	for _, u := range us {
		v, err := u.eval(envs)
		if err != nil {
			return nil, err
		}
		delta[u.Target] = v
	}
	return delta, nil
}

// ApplySequential is like Apply except that each right-hand side
// sees the assignments that preceded it.
func (us Updates) ApplySequential(envs ...symbols.Table) (symbols.Table, error) {
	delta := symbols.NewTable()
	scope := append([]symbols.Table{delta}, envs...)
	for _, u := range us {
		v, err := u.eval(scope)
		if err != nil {
			return nil, err
		}
		delta[u.Target] = v
	}
	return delta, nil
}

// eval computes the value and coerces it to the kind of the target's
// current value (if any).
func (u *Update) eval(envs []symbols.Table) (symbols.Value, error) {
	v, err := u.Expr.Eval(envs...)
	if err != nil {
		return v, err
	}
	was, have := lookup(u.Target, envs)
	if !have {
		return v, nil
	}
	c, err := v.Coerce(was.Kind())
	if err != nil {
		return v, &TypeMismatch{Source: u.String(), Detail: err.Error()}
	}
	return c, nil
}
