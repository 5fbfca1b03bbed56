package tockers

import (
	"context"
	"fmt"
	"sort"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"
)

// InterestingTocker proposes external values that flip edge guards.
//
// For each guard that mentions external symbols, the sat checker is
// asked for values of those symbols that make the guard true and
// values that make it false.  Each answer is an alternative delta.
// Guards that the checker can't decide contribute nothing.
type InterestingTocker struct {
	Network *core.Network

	// Cfg, if not nil, gets trace logging.
	Cfg *core.Config
}

func NewInterestingTocker(n *core.Network, cfg *core.Config) *InterestingTocker {
	return &InterestingTocker{
		Network: n,
		Cfg:     cfg,
	}
}

func (t *InterestingTocker) String() string {
	return "interesting"
}

// externals returns the external symbols the guard mentions.
func (t *InterestingTocker) externals(g *expr.Expr) []string {
	var acc []string
	for _, id := range g.Identifiers() {
		if t.Network.Symbols.Has(id) {
			continue
		}
		if t.Network.External.Has(id) {
			acc = append(acc, id)
		}
	}
	return acc
}

func (t *InterestingTocker) guards() []*expr.Expr {
	names := make([]string, 0, len(t.Network.Components))
	for name := range t.Network.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	var acc []*expr.Expr
	for _, name := range names {
		for _, e := range t.Network.Components[name].Edges {
			if e.Guard != nil {
				acc = append(acc, e.Guard)
			}
		}
	}
	return acc
}

func (t *InterestingTocker) Tocks(ctx context.Context, env symbols.Table) ([]symbols.Table, error) {
	if t.Network == nil {
		return nil, nil
	}

	var (
		acc  []symbols.Table
		seen = make(map[uint64]bool)
	)

	for _, g := range t.guards() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exts := t.externals(g)
		if len(exts) == 0 {
			continue
		}

		known := env.Copy()
		unknown := symbols.NewTable()
		for _, name := range exts {
			if v, have := env[name]; have {
				unknown.Put(name, v)
				delete(known, name)
			}
		}

		for _, f := range []*expr.Expr{g, expr.Not(g)} {
			r, err := expr.SatCheck(f, known, unknown)
			if err != nil {
				return nil, fmt.Errorf("interesting tocker on %s: %w", f, err)
			}
			if r.Verdict != expr.Satisfiable {
				t.Cfg.Trace("interesting tocker", "guard", f.String(), "verdict", r.Verdict.String())
				continue
			}
			if len(r.Witness) == 0 {
				continue
			}
			h := r.Witness.Hash()
			if seen[h] {
				continue
			}
			seen[h] = true
			acc = append(acc, r.Witness)
		}
	}

	return acc, nil
}

// Tock returns the first alternative.
func (t *InterestingTocker) Tock(ctx context.Context, env symbols.Table) (symbols.Table, error) {
	ds, err := t.Tocks(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return symbols.NewTable(), nil
	}
	return ds[0], nil
}
