package expr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Comcast/ntta/symbols"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Verdict is the outcome of a SatCheck.
type Verdict int

const (
	Unsatisfiable Verdict = iota
	Satisfiable
	// Inconclusive means the expression is outside what SatCheck
	// can decide.  It's neither a yes nor a no.
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case Unsatisfiable:
		return "unsatisfiable"
	case Satisfiable:
		return "satisfiable"
	default:
		return "inconclusive"
	}
}

// SatResult is the outcome of a SatCheck.
type SatResult struct {
	Verdict Verdict

	// Witness assigns the unknown symbols that the expression
	// actually constrains.
	Witness symbols.Table

	// Delay, when not nil, is the amount of time the known timers
	// must advance for the witness to hold.
	Delay *float64

	// Reason explains an Inconclusive verdict.
	Reason *DomainError
}

var (
	// SatRounds bounds the number of boolean models SatCheck
	// considers.
	SatRounds = 512

	// TheoryBudget bounds the number of atom evaluations per
	// SatCheck.
	TheoryBudget = 1 << 16
)

// delayName is the internal name of the delay variable.  It can't be
// an HCL identifier.
const delayName = "#delay"

// SatCheck looks for an assignment to the unknown symbols that makes
// the expression true given the known symbols.
//
// The boolean structure (&&, ||, !, ?:) is handed to a SAT solver with
// each non-boolean sub-expression (an "atom", like "x > 3")
// abstracted as a literal.  For each boolean model, values for the
// unknown numbers and strings are searched among boundary candidates
// derived from the atoms.  That search is complete when each atom
// constrains at most one unknown linearly; otherwise a failure to
// find a witness yields Inconclusive.
//
// Known timers referenced by the expression may advance by a common
// non-negative delay, which is reported in the result.
//
// Identifiers in neither table produce an *symbols.UndefinedSymbol.
// A known-only atom that doesn't evaluate to a bool produces a
// *TypeMismatch.
func SatCheck(e *Expr, known, unknown symbols.Table) (*SatResult, error) {
	if e.IsTrue() {
		return &SatResult{Verdict: Satisfiable, Witness: symbols.NewTable()}, nil
	}
	for _, name := range e.names {
		if !known.Has(name) && !unknown.Has(name) {
			return nil, &symbols.UndefinedSymbol{Name: name}
		}
	}

	p := &satProblem{
		src:      e.Source,
		known:    known,
		unknown:  unknown,
		c:        logic.NewC(),
		atomOf:   make(map[z.Var]*atom),
		boolOf:   make(map[z.Var]string),
		boolVars: make(map[string]z.Lit),
		kids:     make(map[z.Var][2]z.Lit),
		base:     make(map[string]cty.Value, len(known)),
	}
	for name, v := range known {
		p.base[name] = toCty(v)
	}

	root, err := p.walk(e.x)
	if err != nil {
		return nil, err
	}
	switch root {
	case p.c.T:
		return &SatResult{Verdict: Satisfiable, Witness: symbols.NewTable()}, nil
	case p.c.F:
		return &SatResult{Verdict: Unsatisfiable}, nil
	}

	atoms, bools := p.cone(root)

	g := gini.New()
	p.c.ToCnf(g)
	g.Add(p.c.T)
	g.Add(0)
	g.Add(root)
	g.Add(0)

	var undecided string
	for round := 0; round < SatRounds; round++ {
		if g.Solve() != 1 {
			if undecided != "" {
				return inconclusive(e.Source, undecided), nil
			}
			return &SatResult{Verdict: Unsatisfiable}, nil
		}

		want := make(map[*atom]bool, len(atoms))
		for _, a := range atoms {
			want[a] = g.Value(a.lit)
		}
		model := make(map[string]bool, len(bools))
		for _, name := range bools {
			model[name] = g.Value(p.boolVars[name])
		}

		t := p.theory(atoms, want, model)
		if t.found {
			res := &SatResult{
				Verdict: Satisfiable,
				Witness: t.witness,
			}
			for name, b := range model {
				res.Witness[name] = symbols.BoolVal(b)
			}
			if 0 < t.delay {
				d := t.delay
				res.Delay = &d
			}
			return res, nil
		}
		if t.undecided != "" && undecided == "" {
			undecided = t.undecided
		}

		// Block this boolean model.
		for _, a := range atoms {
			if want[a] {
				g.Add(a.lit.Not())
			} else {
				g.Add(a.lit)
			}
		}
		for _, name := range bools {
			if model[name] {
				g.Add(p.boolVars[name].Not())
			} else {
				g.Add(p.boolVars[name])
			}
		}
		g.Add(0)

		if len(atoms) == 0 && len(bools) == 0 {
			break
		}
	}
	if undecided == "" {
		undecided = "too many boolean models"
	}
	return inconclusive(e.Source, undecided), nil
}

func inconclusive(src, reason string) *SatResult {
	return &SatResult{
		Verdict: Inconclusive,
		Reason:  &DomainError{Source: src, Reason: reason},
	}
}

type atom struct {
	x    hclsyntax.Expression
	lit  z.Lit
	vars []string // theory unknowns, possibly including delayName
}

type satProblem struct {
	src            string
	known, unknown symbols.Table
	c              *logic.C

	atoms    []*atom
	atomOf   map[z.Var]*atom
	boolOf   map[z.Var]string
	boolVars map[string]z.Lit
	kids     map[z.Var][2]z.Lit

	// base holds the known values.
	base map[string]cty.Value
}

func (p *satProblem) gate(m, a, b z.Lit) z.Lit {
	v := m.Var()
	if _, isAtom := p.atomOf[v]; isAtom {
		return m
	}
	if _, isBool := p.boolOf[v]; isBool {
		return m
	}
	if _, have := p.kids[v]; !have && m != p.c.T && m != p.c.F {
		p.kids[v] = [2]z.Lit{a, b}
	}
	return m
}

func (p *satProblem) and(a, b z.Lit) z.Lit {
	return p.gate(p.c.And(a, b), a, b)
}

// or is built from and so that every gate is recorded.
func (p *satProblem) or(a, b z.Lit) z.Lit {
	return p.and(a.Not(), b.Not()).Not()
}

func (p *satProblem) constant(b bool) z.Lit {
	if b {
		return p.c.T
	}
	return p.c.F
}

// walk builds the boolean skeleton.
func (p *satProblem) walk(x hclsyntax.Expression) (z.Lit, error) {
	switch n := x.(type) {
	case *hclsyntax.ParenthesesExpr:
		return p.walk(n.Expression)
	case *hclsyntax.UnaryOpExpr:
		if n.Op == hclsyntax.OpLogicalNot {
			m, err := p.walk(n.Val)
			return m.Not(), err
		}
	case *hclsyntax.BinaryOpExpr:
		if n.Op == hclsyntax.OpLogicalAnd || n.Op == hclsyntax.OpLogicalOr {
			a, err := p.walk(n.LHS)
			if err != nil {
				return a, err
			}
			b, err := p.walk(n.RHS)
			if err != nil {
				return b, err
			}
			if n.Op == hclsyntax.OpLogicalAnd {
				return p.and(a, b), nil
			}
			return p.or(a, b), nil
		}
	case *hclsyntax.ConditionalExpr:
		c, err := p.walk(n.Condition)
		if err != nil {
			return c, err
		}
		t, err := p.walk(n.TrueResult)
		if err != nil {
			return t, err
		}
		f, err := p.walk(n.FalseResult)
		if err != nil {
			return f, err
		}
		return p.or(p.and(c, t), p.and(c.Not(), f)), nil
	case *hclsyntax.ScopeTraversalExpr:
		if len(n.Traversal) == 1 {
			name := n.Traversal.RootName()
			if v, have := p.unknown[name]; have && v.Kind() == symbols.Bool && !p.known.Has(name) {
				m, have := p.boolVars[name]
				if !have {
					m = p.c.Lit()
					p.boolVars[name] = m
					p.boolOf[m.Var()] = name
				}
				return m, nil
			}
		}
	}
	return p.atom(x)
}

func (p *satProblem) atom(x hclsyntax.Expression) (z.Lit, error) {
	var vars []string
	seen := make(map[string]bool)
	for _, t := range x.Variables() {
		name := t.RootName()
		if seen[name] {
			continue
		}
		seen[name] = true
		if v, have := p.known[name]; have {
			if v.Kind() == symbols.Timer && !seen[delayName] {
				seen[delayName] = true
				vars = append(vars, delayName)
			}
			continue
		}
		vars = append(vars, name)
	}
	sort.Strings(vars)

	if len(vars) == 0 {
		b, err := p.holds(x, nil)
		if err != nil {
			return p.c.F, err
		}
		return p.constant(b), nil
	}

	a := &atom{
		x:    x,
		lit:  p.c.Lit(),
		vars: vars,
	}
	p.atoms = append(p.atoms, a)
	p.atomOf[a.lit.Var()] = a
	return a.lit, nil
}

// cone finds the atoms and boolean variables that the root depends
// on.  Others were simplified away and don't constrain anything.
func (p *satProblem) cone(root z.Lit) ([]*atom, []string) {
	var (
		atoms []*atom
		bools []string
		seen  = make(map[z.Var]bool)
		visit func(m z.Lit)
	)
	visit = func(m z.Lit) {
		v := m.Var()
		if seen[v] {
			return
		}
		seen[v] = true
		if a, is := p.atomOf[v]; is {
			atoms = append(atoms, a)
			return
		}
		if name, is := p.boolOf[v]; is {
			bools = append(bools, name)
			return
		}
		if ks, is := p.kids[v]; is {
			visit(ks[0])
			visit(ks[1])
		}
	}
	visit(root)
	sort.Strings(bools)
	return atoms, bools
}

// evalContext makes an evaluation context with the known values,
// timers advanced by the delay (if assigned), and the given
// assignments.
func (p *satProblem) evalContext(assigned map[string]symbols.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(p.base)+len(assigned))
	for k, v := range p.base {
		vars[k] = v
	}
	if d, have := assigned[delayName]; have {
		delay, _ := d.AsReal()
		for name, v := range p.known {
			if v.Kind() == symbols.Timer {
				f, _ := v.AsReal()
				vars[name] = cty.NumberFloatVal(f + delay)
			}
		}
	}
	for k, v := range assigned {
		if k != delayName {
			vars[k] = toCty(v)
		}
	}
	return &hcl.EvalContext{
		Variables: vars,
		Functions: Functions,
	}
}

func (p *satProblem) value(x hclsyntax.Expression, assigned map[string]symbols.Value) (cty.Value, error) {
	v, diags := x.Value(p.evalContext(assigned))
	if diags.HasErrors() {
		return cty.NilVal, &TypeMismatch{Source: p.src, Detail: diagDetail(diags)}
	}
	if !v.IsKnown() || v.IsNull() {
		return cty.NilVal, &TypeMismatch{Source: p.src, Detail: "no value"}
	}
	return v, nil
}

func (p *satProblem) holds(x hclsyntax.Expression, assigned map[string]symbols.Value) (bool, error) {
	v, err := p.value(x, assigned)
	if err != nil {
		return false, err
	}
	if v.Type() != cty.Bool {
		return false, &TypeMismatch{Source: p.src, Detail: "condition is a " + v.Type().FriendlyName() + ", not a bool"}
	}
	return v.True(), nil
}

func (p *satProblem) number(x hclsyntax.Expression, assigned map[string]symbols.Value) (float64, bool) {
	v, err := p.value(x, assigned)
	if err != nil || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

func (p *satProblem) kind(name string) symbols.Kind {
	if name == delayName {
		return symbols.Real
	}
	return p.unknown[name].Kind()
}

type theoryResult struct {
	found     bool
	witness   symbols.Table
	delay     float64
	undecided string
}

func isComparison(op *hclsyntax.Operation) bool {
	switch op {
	case hclsyntax.OpEqual, hclsyntax.OpNotEqual,
		hclsyntax.OpGreaterThan, hclsyntax.OpGreaterThanOrEqual,
		hclsyntax.OpLessThan, hclsyntax.OpLessThanOrEqual:
		return true
	}
	return false
}

func unwrap(x hclsyntax.Expression) hclsyntax.Expression {
	for {
		p, is := x.(*hclsyntax.ParenthesesExpr)
		if !is {
			return x
		}
		x = p.Expression
	}
}

// candidates computes the values to try for each theory variable and
// whether those candidates are known to be sufficient.
func (p *satProblem) candidates(atoms []*atom, model map[string]bool) (map[string][]symbols.Value, []string, string) {
	var (
		undecided string
		bounds    = make(map[string][]float64)
		strs      = make(map[string][]string)
		names     []string
		seen      = make(map[string]bool)
	)
	for _, a := range atoms {
		for _, v := range a.vars {
			if !seen[v] {
				seen[v] = true
				names = append(names, v)
			}
		}
	}
	sort.Strings(names)

	zeros := make(map[string]symbols.Value, len(names))
	for _, name := range names {
		switch p.kind(name) {
		case symbols.String:
			zeros[name] = symbols.StringVal("")
		case symbols.Bool:
			zeros[name] = symbols.BoolVal(false)
		default:
			zeros[name] = symbols.IntVal(0)
		}
	}

	for _, a := range atoms {
		if 1 < len(a.vars) && undecided == "" {
			undecided = "`" + exprSource(p.src, a.x) + "` constrains more than one unknown"
		}
		cmp, is := unwrap(a.x).(*hclsyntax.BinaryOpExpr)
		if !is || !isComparison(cmp.Op) {
			for _, v := range a.vars {
				if p.kind(v) != symbols.Bool && undecided == "" {
					undecided = "`" + exprSource(p.src, a.x) + "` isn't a comparison"
				}
			}
			continue
		}
		for _, v := range a.vars {
			switch p.kind(v) {
			case symbols.Bool:
			case symbols.String:
				for _, side := range []hclsyntax.Expression{cmp.LHS, cmp.RHS} {
					if s, err := p.value(side, zeros); err == nil && s.Type() == cty.String && !mentions(side, v) {
						strs[v] = append(strs[v], s.AsString())
					}
				}
				if cmp.Op != hclsyntax.OpEqual && cmp.Op != hclsyntax.OpNotEqual && undecided == "" {
					undecided = "`" + exprSource(p.src, a.x) + "` orders strings"
				}
			default:
				b, linear := p.boundary(cmp, v, zeros)
				if linear {
					bounds[v] = append(bounds[v], b)
				} else if undecided == "" {
					undecided = "`" + exprSource(p.src, a.x) + "` isn't linear in " + v
				}
			}
		}
	}

	acc := make(map[string][]symbols.Value, len(names))
	for _, name := range names {
		switch k := p.kind(name); k {
		case symbols.Bool:
			if b, have := model[name]; have {
				acc[name] = []symbols.Value{symbols.BoolVal(b)}
			} else {
				acc[name] = []symbols.Value{symbols.BoolVal(false), symbols.BoolVal(true)}
			}
		case symbols.String:
			acc[name] = stringCandidates(strs[name])
		default:
			acc[name] = numberCandidates(k, bounds[name], name == delayName)
		}
	}
	return acc, names, undecided
}

func mentions(x hclsyntax.Expression, name string) bool {
	for _, t := range x.Variables() {
		if t.RootName() == name {
			return true
		}
	}
	return false
}

// boundary probes L - R as a function of v (others fixed) and returns
// the root if the function is affine with a non-zero slope.
func (p *satProblem) boundary(cmp *hclsyntax.BinaryOpExpr, v string, fixed map[string]symbols.Value) (float64, bool) {
	diff := func(at float64) (float64, bool) {
		assigned := make(map[string]symbols.Value, len(fixed))
		for k, x := range fixed {
			assigned[k] = x
		}
		assigned[v] = symbols.RealVal(at)
		l, ok := p.number(cmp.LHS, assigned)
		if !ok {
			return 0, false
		}
		r, ok := p.number(cmp.RHS, assigned)
		if !ok {
			return 0, false
		}
		return l - r, true
	}
	var ds [4]float64
	for i, at := range []float64{-1, 0, 1, 2} {
		d, ok := diff(at)
		if !ok {
			return 0, false
		}
		ds[i] = d
	}
	slope := ds[2] - ds[1]
	const eps = 1e-9
	if math.Abs((ds[1]-ds[0])-slope) > eps || math.Abs((ds[3]-ds[2])-slope) > eps {
		return 0, false
	}
	if slope == 0 {
		// Constant in v: any value will do as well as another.
		return 0, true
	}
	return -ds[1] / slope, true
}

func numberCandidates(k symbols.Kind, bounds []float64, nonNegative bool) []symbols.Value {
	pts := map[float64]bool{0: true}
	sort.Float64s(bounds)
	for i, b := range bounds {
		if math.IsInf(b, 0) || math.IsNaN(b) {
			continue
		}
		if k == symbols.Int {
			for _, x := range []float64{math.Floor(b) - 1, math.Floor(b), math.Ceil(b), math.Ceil(b) + 1} {
				pts[x] = true
			}
		} else {
			pts[b] = true
			pts[b-1] = true
			pts[b+1] = true
			if 0 < i {
				pts[(bounds[i-1]+b)/2] = true
			}
		}
	}
	xs := make([]float64, 0, len(pts))
	for x := range pts {
		if nonNegative && x < 0 {
			continue
		}
		xs = append(xs, x)
	}
	sort.Float64s(xs)

	acc := make([]symbols.Value, len(xs))
	for i, x := range xs {
		switch k {
		case symbols.Int:
			acc[i] = symbols.IntVal(int64(x))
		case symbols.Timer:
			acc[i] = symbols.TimerVal(x)
		default:
			acc[i] = symbols.RealVal(x)
		}
	}
	return acc
}

func stringCandidates(consts []string) []symbols.Value {
	sort.Strings(consts)
	var acc []symbols.Value
	have := make(map[string]bool)
	for _, s := range consts {
		if !have[s] {
			have[s] = true
			acc = append(acc, symbols.StringVal(s))
		}
	}
	fresh := "_"
	for have[fresh] {
		fresh += "_"
	}
	return append(acc, symbols.StringVal(fresh))
}

// theory searches for an assignment that gives every atom its wanted
// truth value.
func (p *satProblem) theory(atoms []*atom, want map[*atom]bool, model map[string]bool) *theoryResult {
	cands, names, undecided := p.candidates(atoms, model)

	// Atoms become checkable once their last variable is assigned.
	ready := make([][]*atom, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	for _, a := range atoms {
		last := 0
		for _, v := range a.vars {
			if i := index[v]; last < i {
				last = i
			}
		}
		ready[last] = append(ready[last], a)
	}

	var (
		budget   = TheoryBudget
		assigned = make(map[string]symbols.Value, len(names))
		search   func(i int) bool
	)
	search = func(i int) bool {
		if i == len(names) {
			return true
		}
		name := names[i]
	CANDIDATES:
		for _, c := range cands[name] {
			assigned[name] = c
			for _, a := range ready[i] {
				if budget--; budget < 0 {
					return false
				}
				b, err := p.holds(a.x, assigned)
				if err != nil {
					if undecided == "" {
						undecided = err.Error()
					}
					continue CANDIDATES
				}
				if b != want[a] {
					continue CANDIDATES
				}
			}
			if search(i + 1) {
				return true
			}
			if budget < 0 {
				return false
			}
		}
		delete(assigned, name)
		return false
	}

	if search(0) {
		res := &theoryResult{
			found:   true,
			witness: symbols.NewTable(),
		}
		for name, v := range assigned {
			if name == delayName {
				res.delay, _ = v.AsReal()
				continue
			}
			res.witness[name] = v
		}
		return res
	}
	if budget < 0 && undecided == "" {
		undecided = fmt.Sprintf("gave up after %d evaluations", TheoryBudget)
	}
	return &theoryResult{undecided: undecided}
}

func exprSource(src string, x hclsyntax.Expression) string {
	r := x.Range()
	text := r.Filename
	if 0 <= r.Start.Byte && r.Start.Byte < r.End.Byte && r.End.Byte <= len(text) {
		return strings.TrimSpace(text[r.Start.Byte:r.End.Byte])
	}
	return src
}
