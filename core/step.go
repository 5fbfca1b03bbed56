package core

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"
)

var (
	// MaxTockAlternatives bounds the number of tock successors
	// from one state.
	MaxTockAlternatives = 1024

	// DefaultControl will be used by Network.Walk if the given
	// control is nil.
	DefaultControl = &Control{
		Limit: 100,
	}
)

// Nondeterminism records a location with more than one enabled edge.
type Nondeterminism struct {
	Component string
	Location  string
	Edges     []string
}

func (nd *Nondeterminism) String() string {
	return nd.Component + "." + nd.Location + ": " + strings.Join(nd.Edges, ", ")
}

// Error makes the NondeterminismError for the given state.
func (nd *Nondeterminism) Error(st *State) *NondeterminismError {
	return &NondeterminismError{
		Component: nd.Component,
		Location:  nd.Location,
		Edges:     nd.Edges,
		State:     st.String(),
	}
}

// enabled reports whether the edge's guard holds.  Evaluation
// problems disable the edge.
func (e *Edge) enabled(cfg *Config, component string, st *State) bool {
	if e.Guard == nil {
		return false
	}
	ok, err := e.Guard.Holds(st.Env()...)
	if err == nil {
		return ok
	}
	var us *symbols.UndefinedSymbol
	if errors.As(err, &us) {
		cfg.Trace("guard mentions an undefined symbol", "component", component, "edge", e.Id, "symbol", us.Name)
	} else {
		cfg.Log().Error("guard evaluation failed", "component", component, "edge", e.Id, "error", err)
	}
	return false
}

// Enabled returns the edges leaving the component's current location
// whose guards hold.
func (n *Network) Enabled(cfg *Config, st *State, component string) ([]*Edge, error) {
	if !n.compiled {
		return nil, &NetworkNotCompiled{n}
	}
	c, err := n.Component(component)
	if err != nil {
		return nil, err
	}
	var acc []*Edge
	for _, e := range c.Out(st.At(component)) {
		if e.enabled(cfg, component, st) {
			acc = append(acc, e)
		}
	}
	return acc, nil
}

// Deadlocked reports whether no component has an enabled edge.
func (n *Network) Deadlocked(cfg *Config, st *State) (bool, error) {
	for _, name := range n.ComponentNames() {
		es, err := n.Enabled(cfg, st, name)
		if err != nil {
			return false, err
		}
		if 0 < len(es) {
			return false, nil
		}
	}
	return true, nil
}

// Immediate reports whether some component is at an urgent location
// with an enabled edge.  Such a state must tick before it can tock.
func (n *Network) Immediate(cfg *Config, st *State) bool {
	for _, name := range n.ComponentNames() {
		c := n.Components[name]
		l, have := c.Locations[st.At(name)]
		if !have || !l.Urgent {
			continue
		}
		if es, _ := n.Enabled(cfg, st, name); 0 < len(es) {
			return true
		}
	}
	return false
}

// InterestingVariables returns the identifiers mentioned by the guards
// of the edges leaving the current locations.
func (n *Network) InterestingVariables(st *State) map[string]bool {
	acc := make(map[string]bool)
	for name, c := range n.Components {
		for _, e := range c.Out(st.At(name)) {
			if e.Guard == nil {
				continue
			}
			for _, id := range e.Guard.Identifiers() {
				acc[id] = true
			}
		}
	}
	return acc
}

// Interesting reports whether a current guard mentions an external
// symbol, which means a tock could change what's enabled.
func (n *Network) Interesting(st *State) bool {
	for id := range n.InterestingVariables(st) {
		if st.External.Has(id) && !st.Symbols.Has(id) {
			return true
		}
	}
	return false
}

// Ticks computes the tick successors of the state.
//
// Components fire independently: each enabled edge of each component
// yields one change that moves that component alone.  Locations with
// more than one enabled edge are reported as Nondeterminism; deciding
// what to do about them is up to the caller.
//
// Edges whose guards or updates fail to evaluate are logged and
// skipped.
func (n *Network) Ticks(ctx context.Context, cfg *Config, st *State) ([]*StateChange, []*Nondeterminism, error) {
	if !n.compiled {
		return nil, nil, &NetworkNotCompiled{n}
	}

	var (
		changes []*StateChange
		nds     []*Nondeterminism
	)

	for _, name := range n.ComponentNames() {
		es, err := n.Enabled(cfg, st, name)
		if err != nil {
			return nil, nil, err
		}
		if 1 < len(es) {
			nd := &Nondeterminism{
				Component: name,
				Location:  st.At(name),
			}
			for _, e := range es {
				nd.Edges = append(nd.Edges, e.Id)
			}
			nds = append(nds, nd)
		}
		for _, e := range es {
			delta, err := e.Apply(st.Env()...)
			if err != nil {
				cfg.Log().Error("update failed", "component", name, "edge", e.Id, "error", err)
				continue
			}
			changes = append(changes, &StateChange{
				Locations: map[string]string{name: e.Target},
				Symbols:   delta,
				Via:       []string{name + "." + e.Id},
			})
		}
	}

	return changes, nds, nil
}

// Tocks computes the tock successors of the state.
//
// Each tocker sees the environment (internal and external symbols).
// The deltas of plain tockers are merged in order, later ones
// overwriting earlier ones.  Each alternative offered by a
// BranchingTocker is layered on top of that merge to make a separate
// candidate.
//
// A candidate only becomes a successor if it changes an interesting
// variable (see InterestingVariables).  Identical candidates are
// reported once.
func (n *Network) Tocks(ctx context.Context, cfg *Config, st *State) ([]*StateChange, error) {
	if !n.compiled {
		return nil, &NetworkNotCompiled{n}
	}

	var (
		env    = st.Environment()
		merged = symbols.NewTable()
		alts   []symbols.Table
	)

	for _, t := range n.AllTockers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bt, is := t.(BranchingTocker); is {
			ds, err := bt.Tocks(ctx, env.Copy())
			if err != nil {
				cfg.Log().Error("tock failed", "tocker", tockerName(t), "error", err)
				continue
			}
			alts = append(alts, ds...)
			if MaxTockAlternatives < len(alts) {
				return nil, TooManyTockers
			}
			continue
		}
		delta, err := t.Tock(ctx, env.Copy())
		if err != nil {
			cfg.Log().Error("tock failed", "tocker", tockerName(t), "error", err)
			continue
		}
		if overlap := merged.Overlap(delta); 0 < len(overlap) {
			cfg.Warn(WarnOverlapIdem, "tockers update the same symbols", "tocker", tockerName(t), "symbols", overlap)
		}
		merged.Merge(delta)
	}

	var candidates []symbols.Table
	if len(alts) == 0 {
		candidates = []symbols.Table{merged}
	} else {
		for _, alt := range alts {
			candidates = append(candidates, merged.Copy().Merge(alt))
		}
	}

	interesting := n.InterestingVariables(st)
	seen := make(map[uint64]bool, len(candidates))
	var changes []*StateChange
	for _, c := range candidates {
		delta := env.Diff(c)
		if !touches(delta, interesting) {
			continue
		}
		h := delta.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		changes = append(changes, &StateChange{
			Symbols: delta,
			Via:     []string{"tock"},
			Tock:    true,
		})
	}
	return changes, nil
}

func touches(delta symbols.Table, interesting map[string]bool) bool {
	for name := range delta {
		if interesting[name] {
			return true
		}
	}
	return false
}

func tockerName(t Tocker) string {
	if s, is := t.(interface{ String() string }); is {
		return s.String()
	}
	return "anonymous"
}

// Guards returns the distinct guards of the edges leaving the
// component's location.
func (c *Component) Guards(location string) []*expr.Expr {
	var acc []*expr.Expr
	for _, e := range c.Out(location) {
		if e.Guard != nil {
			acc = append(acc, e.Guard)
		}
	}
	return acc
}

// StopReason represents the possible reasons for a Walk to terminate.
type StopReason int

const (
	Done              StopReason = iota // Nothing left to do.
	Limited                             // Too many steps.
	BreakpointReached                   // During a Walk.
)

func (r StopReason) String() string {
	switch r {
	case Done:
		return "done"
	case Limited:
		return "limited"
	default:
		return "breakpoint"
	}
}

// Breakpoint is a *State predicate.
//
// When a Breakpoint returns true for a *State, then processing should
// stop at that point.
type Breakpoint func(context.Context, *State) bool

// Control influences how Walk() operates.
type Control struct {
	// Limit is the maximum number of steps that a Walk() can take.
	Limit int

	Breakpoints map[string]Breakpoint

	// Choose picks one of several changes.  The default picks
	// the first.
	Choose func([]*StateChange) int
}

// Stride represents a step that Walk has taken.
type Stride struct {
	From   *State       `json:"from"`
	To     *State       `json:"to"`
	Change *StateChange `json:"change"`
}

// Walked is the result of a Walk.
type Walked struct {
	Strides        []*Stride  `json:"strides"`
	StoppedBecause StopReason `json:"stoppedBecause"`
	BreakpointId   string     `json:"breakpoint,omitempty"`
}

// To returns the last state (or nil if no steps were taken).
func (w *Walked) To() *State {
	if len(w.Strides) == 0 {
		return nil
	}
	return w.Strides[len(w.Strides)-1].To
}

// Walk simulates one run.  At each step it prefers a tick; it tocks
// only when no tick is possible and the state isn't immediate.
func (n *Network) Walk(ctx context.Context, cfg *Config, st *State, c *Control) (*Walked, error) {
	if c == nil {
		c = DefaultControl
	}
	walked := &Walked{}

	ids := make([]string, 0, len(c.Breakpoints))
	for id := range c.Breakpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i := 0; i < c.Limit; i++ {
		if err := ctx.Err(); err != nil {
			return walked, err
		}
		for _, id := range ids {
			if c.Breakpoints[id](ctx, st) {
				walked.StoppedBecause = BreakpointReached
				walked.BreakpointId = id
				return walked, nil
			}
		}

		changes, _, err := n.Ticks(ctx, cfg, st)
		if err != nil {
			return walked, err
		}
		if len(changes) == 0 && !n.Immediate(cfg, st) {
			if changes, err = n.Tocks(ctx, cfg, st); err != nil {
				return walked, err
			}
		}
		if len(changes) == 0 {
			walked.StoppedBecause = Done
			return walked, nil
		}

		choice := 0
		if c.Choose != nil {
			choice = c.Choose(changes)
		}
		next := st.Apply(changes[choice])
		walked.Strides = append(walked.Strides, &Stride{
			From:   st,
			To:     next,
			Change: changes[choice],
		})
		st = next
	}

	walked.StoppedBecause = Limited
	return walked, nil
}
