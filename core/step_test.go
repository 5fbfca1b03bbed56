package core

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/ntta/symbols"
	. "github.com/Comcast/ntta/util/testutil"
)

func TestTicksCountdown(t *testing.T) {
	ctx := context.Background()
	n, err := CountdownNetwork(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Logger: Logger(t)}

	st := n.InitialState()
	changes, nds, err := n.Ticks(ctx, cfg, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(nds) != 0 {
		t.Fatal(nds)
	}
	if len(changes) != 1 {
		t.Fatal(changes)
	}
	c := changes[0]
	if c.Via[0] != "A.dec" || c.Locations["A"] != "L1" || c.Tock {
		t.Fatal(JS(c))
	}
	next := st.Apply(c)
	if v := next.Symbols["x"]; !v.Equal(symbols.IntVal(0)) {
		t.Fatal(next)
	}

	// Back to L0 with x == 0: nothing is enabled.
	next = next.Apply(&StateChange{Locations: map[string]string{"A": "L0"}})
	if changes, _, err = n.Ticks(ctx, cfg, next); err != nil {
		t.Fatal(err)
	} else if len(changes) != 0 {
		t.Fatal(changes)
	}
	if dead, err := n.Deadlocked(cfg, next); err != nil || !dead {
		t.Fatal(dead, err)
	}
}

func TestTicksInterleaved(t *testing.T) {
	ctx := context.Background()
	n := &Network{
		Symbols: symbols.NewTable().Put("x", symbols.IntVal(0)),
		Components: map[string]*Component{
			"A": {
				Initial:   "L0",
				Locations: map[string]*Location{"L0": {}, "L1": {}},
				Edges:     []*Edge{{Id: "a", Source: "L0", Target: "L1", UpdateSource: "x := x + 1"}},
			},
			"B": {
				Initial:   "M0",
				Locations: map[string]*Location{"M0": {}, "M1": {}},
				Edges:     []*Edge{{Id: "b", Source: "M0", Target: "M1", UpdateSource: "x := x + 10"}},
			},
		},
	}
	if err := n.Compile(ctx, nil, true); err != nil {
		t.Fatal(err)
	}
	changes, _, err := n.Ticks(ctx, nil, n.InitialState())
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatal(changes)
	}
	for _, c := range changes {
		if len(c.Locations) != 1 {
			t.Fatal(JS(c))
		}
	}
	if changes[0].Via[0] != "A.a" || changes[1].Via[0] != "B.b" {
		t.Fatal(changes)
	}
}

func nondeterministic(t *testing.T) *Network {
	n := &Network{
		Components: map[string]*Component{
			"A": {
				Initial:   "L0",
				Locations: map[string]*Location{"L0": {}, "L1": {}, "L2": {}},
				Edges: []*Edge{
					{Id: "left", Source: "L0", Target: "L1"},
					{Id: "right", Source: "L0", Target: "L2"},
				},
			},
		},
	}
	if err := n.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestTicksNondeterminism(t *testing.T) {
	n := nondeterministic(t)
	st := n.InitialState()
	changes, nds, err := n.Ticks(context.Background(), nil, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatal(changes)
	}
	if len(nds) != 1 {
		t.Fatal(nds)
	}
	nd := nds[0]
	if nd.Component != "A" || nd.Location != "L0" || len(nd.Edges) != 2 {
		t.Fatal(JS(nd))
	}
	err = nd.Error(st)
	var nde *NondeterminismError
	if !errors.As(err, &nde) || nde.Edges[0] != "left" || nde.Edges[1] != "right" {
		t.Fatal(err)
	}
}

func TestGuardUndefinedSymbolDisablesEdge(t *testing.T) {
	ctx := context.Background()
	n, err := CountdownNetwork(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	st := n.InitialState()
	delete(st.Symbols, "x")
	changes, _, err := n.Ticks(ctx, &Config{Logger: Logger(t)}, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Fatal(changes)
	}
}

func TestTocksInteresting(t *testing.T) {
	ctx := context.Background()
	n, err := DoorNetwork(ctx, Incrementer("y"))
	if err != nil {
		t.Fatal(err)
	}
	st := n.InitialState()
	if !n.Interesting(st) {
		t.Fatal("not interesting")
	}

	changes, err := n.Tocks(ctx, &Config{Logger: Logger(t)}, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || !changes[0].Tock {
		t.Fatal(changes)
	}
	next := st.Apply(changes[0])
	if v := next.External["y"]; !v.Equal(symbols.IntVal(1)) {
		t.Fatal(next)
	}

	// At L1 nothing reads y, so the tock is pruned.
	next = next.Apply(&StateChange{Locations: map[string]string{"A": "L1"}})
	if n.Interesting(next) {
		t.Fatal("interesting")
	}
	if changes, err = n.Tocks(ctx, nil, next); err != nil {
		t.Fatal(err)
	} else if len(changes) != 0 {
		t.Fatal(changes)
	}
}

func TestTocksNoChangeIsPruned(t *testing.T) {
	ctx := context.Background()
	same := &FuncTocker{
		Name: "same",
		F: func(ctx context.Context, env symbols.Table) (symbols.Table, error) {
			return symbols.NewTable().Put("y", env["y"]), nil
		},
	}
	n, err := DoorNetwork(ctx, same)
	if err != nil {
		t.Fatal(err)
	}
	changes, err := n.Tocks(ctx, nil, n.InitialState())
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Fatal(changes)
	}
}

type branches []symbols.Table

func (bs branches) Tock(ctx context.Context, env symbols.Table) (symbols.Table, error) {
	return bs[0], nil
}

func (bs branches) Tocks(ctx context.Context, env symbols.Table) ([]symbols.Table, error) {
	return bs, nil
}

func TestTocksBranching(t *testing.T) {
	ctx := context.Background()
	bt := branches{
		symbols.NewTable().Put("y", symbols.IntVal(1)),
		symbols.NewTable().Put("y", symbols.IntVal(2)),
		symbols.NewTable().Put("y", symbols.IntVal(1)),
	}
	n, err := DoorNetwork(ctx, bt)
	if err != nil {
		t.Fatal(err)
	}
	changes, err := n.Tocks(ctx, nil, n.InitialState())
	if err != nil {
		t.Fatal(err)
	}
	// The duplicate alternative is reported once.
	if len(changes) != 2 {
		t.Fatal(changes)
	}
}

func TestTocksOverlapLaterWins(t *testing.T) {
	ctx := context.Background()
	set := func(i int64) Tocker {
		return &FuncTocker{
			F: func(ctx context.Context, env symbols.Table) (symbols.Table, error) {
				return symbols.NewTable().Put("y", symbols.IntVal(i)), nil
			},
		}
	}
	n, err := DoorNetwork(ctx, set(3), set(4))
	if err != nil {
		t.Fatal(err)
	}
	changes, err := n.Tocks(ctx, &Config{Logger: Logger(t), Warnings: NewWarnings()}, n.InitialState())
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatal(changes)
	}
	if v := changes[0].Symbols["y"]; !v.Equal(symbols.IntVal(4)) {
		t.Fatal(changes[0].Symbols)
	}
}

func TestImmediate(t *testing.T) {
	ctx := context.Background()
	n, err := DoorNetwork(ctx, Incrementer("y"))
	if err != nil {
		t.Fatal(err)
	}
	n.Components["A"].Locations["L0"].Urgent = true

	st := n.InitialState()
	// Urgent but nothing is enabled yet.
	if n.Immediate(nil, st) {
		t.Fatal("immediate")
	}
	st = st.Apply(&StateChange{Symbols: symbols.NewTable().Put("y", symbols.IntVal(1))})
	if !n.Immediate(nil, st) {
		t.Fatal("not immediate")
	}
}

func TestWalkBreakpoint(t *testing.T) {
	ctx := context.Background()
	n, err := CountdownNetwork(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	c := &Control{
		Limit: 100,
		Breakpoints: map[string]Breakpoint{
			"one": func(ctx context.Context, st *State) bool {
				v, _ := st.Lookup("x")
				return v.Equal(symbols.IntVal(1))
			},
		},
	}
	walked, err := n.Walk(ctx, nil, n.InitialState(), c)
	if err != nil {
		t.Fatal(err)
	}
	if walked.StoppedBecause != BreakpointReached || walked.BreakpointId != "one" {
		t.Fatal(JS(walked))
	}
	if walked.To().At("A") != "L1" {
		t.Fatal(walked.To())
	}
}

func TestWalkTocks(t *testing.T) {
	ctx := context.Background()
	n, err := DoorNetwork(ctx, Incrementer("y"))
	if err != nil {
		t.Fatal(err)
	}
	walked, err := n.Walk(ctx, nil, n.InitialState(), &Control{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(walked.Strides) != 2 {
		t.Fatal(JS(walked))
	}
	if !walked.Strides[0].Change.Tock || walked.To().At("A") != "L1" {
		t.Fatal(JS(walked))
	}
}
