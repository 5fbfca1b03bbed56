package verifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/symbols"
	"github.com/Comcast/ntta/util"
	. "github.com/Comcast/ntta/util/testutil"
)

func search(t *testing.T, n *core.Network, opts *Options, texts ...string) *Results {
	qs, err := ctl.NewCompiler(n).CompileAll(texts)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &core.Config{Logger: Logger(t), Warnings: core.NewWarnings()}
	rs, err := Search(context.Background(), n, qs, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func countdown(t *testing.T) *core.Network {
	n, err := core.CountdownNetwork(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSearchReachesSymbolValue(t *testing.T) {
	rs := search(t, countdown(t), nil, "E F x == 0")
	if rs.Outcome != Satisfied {
		t.Fatal(rs.Outcome)
	}
	r := rs.Queries[0]
	if !r.Answered || !r.Satisfied {
		t.Fatal(JS(r))
	}
	last := r.Witness[len(r.Witness)-1]
	if v := last.Symbols["x"]; !v.Equal(symbols.IntVal(0)) {
		t.Fatal(last)
	}
	if first := r.Witness[0]; first.At("A") != "L0" || r.Via[0] != "init" {
		t.Fatal(first, r.Via)
	}
	if len(r.Witness) != len(r.Via) {
		t.Fatal(r.Via)
	}
	// Every step is a single tick from its predecessor.
	for i := 1; i < len(r.Witness); i++ {
		if r.Witness[i].Equal(r.Witness[i-1]) {
			t.Fatalf("step %d repeats", i)
		}
	}
}

func TestSearchReachesLocation(t *testing.T) {
	rs := search(t, countdown(t), nil, "E F L1")
	r := rs.Queries[0]
	if !r.Satisfied {
		t.Fatal(JS(r))
	}
	if last := r.Witness[len(r.Witness)-1]; last.At("A") != "L1" {
		t.Fatal(last)
	}
	if len(r.Witness) != 2 || r.Via[1] != "A.dec" {
		t.Fatal(r.Via)
	}
}

func TestSearchExhausted(t *testing.T) {
	n := &core.Network{
		Symbols: symbols.NewTable().Put("x", symbols.IntVal(0)),
		Components: map[string]*core.Component{
			"A": {
				Initial:   "L0",
				Locations: map[string]*core.Location{"L0": {}},
				Edges:     []*core.Edge{{Source: "L0", Target: "L0"}},
			},
		},
	}
	if err := n.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	rs := search(t, n, nil, "E F x == 1")
	if rs.Outcome != Exhausted {
		t.Fatal(rs.Outcome)
	}
	r := rs.Queries[0]
	if r.Satisfied || r.Witness != nil {
		t.Fatal(JS(r))
	}
	if rs.Explored != 1 {
		t.Fatal(rs.Explored)
	}
	if rs.AllSatisfied() {
		t.Fatal("all satisfied")
	}
}

func TestSearchTocks(t *testing.T) {
	n, err := core.DoorNetwork(context.Background(), core.Incrementer("y"))
	if err != nil {
		t.Fatal(err)
	}
	rs := search(t, n, nil, "E F y > 0", "E F A.L1")
	if rs.Outcome != Satisfied {
		t.Fatal(rs.Outcome)
	}
	r := rs.Queries[0]
	if !r.Satisfied || len(r.Via) != 2 || r.Via[1] != "tock" {
		t.Fatal(JS(r))
	}
	if r := rs.Queries[1]; !r.Satisfied || r.Via[len(r.Via)-1] != "A.open" {
		t.Fatal(JS(r))
	}
}

func TestSearchPanic(t *testing.T) {
	n := &core.Network{
		Components: map[string]*core.Component{
			"A": {
				Initial:   "L0",
				Locations: map[string]*core.Location{"L0": {}, "L1": {}, "L2": {}},
				Edges: []*core.Edge{
					{Id: "left", Source: "L0", Target: "L1"},
					{Id: "right", Source: "L0", Target: "L2"},
				},
			},
		},
	}
	ctx := context.Background()
	if err := n.Compile(ctx, nil, true); err != nil {
		t.Fatal(err)
	}
	qs := []*ctl.Query{ctl.NewCompiler(n).MustCompile("E F L2")}

	_, err := Search(ctx, n, qs, nil, &Options{Strategy: Panic})
	var nde *core.NondeterminismError
	if !errors.As(err, &nde) {
		t.Fatal(err)
	}
	if nde.Location != "L0" || len(nde.Edges) != 2 || nde.Edges[0] != "left" || nde.Edges[1] != "right" {
		t.Fatal(JS(nde))
	}

	// Other strategies explore both.
	for _, s := range []Strategy{First, Last, Random} {
		rs, err := Search(ctx, n, qs, nil, &Options{Strategy: s, Rand: rand.New(rand.NewSource(1))})
		if err != nil {
			t.Fatal(err)
		}
		if !rs.Queries[0].Satisfied {
			t.Fatal(s)
		}
	}
}

func TestSearchForall(t *testing.T) {
	rs := search(t, countdown(t), nil, "A G x >= 0")
	if rs.Outcome != Exhausted {
		t.Fatal(rs.Outcome)
	}
	if r := rs.Queries[0]; !r.Answered || !r.Satisfied || r.Witness != nil {
		t.Fatal(JS(r))
	}

	rs = search(t, countdown(t), nil, "A G x > 2")
	if rs.Outcome != Satisfied {
		t.Fatal(rs.Outcome)
	}
	r := rs.Queries[0]
	if !r.Answered || r.Satisfied {
		t.Fatal(JS(r))
	}
	// The counterexample ends where x is 2.
	if v := r.Witness[len(r.Witness)-1].Symbols["x"]; !v.Equal(symbols.IntVal(2)) {
		t.Fatal(r.Witness)
	}
}

func TestSearchUnsupported(t *testing.T) {
	rs := search(t, countdown(t), nil, "E G L0", "E F L1")
	if rs.Outcome != Satisfied {
		t.Fatal(rs.Outcome)
	}
	if r := rs.Queries[0]; !r.Unsupported || r.Answered || r.Error == "" {
		t.Fatal(JS(r))
	}
	if r := rs.Queries[1]; !r.Satisfied {
		t.Fatal(JS(r))
	}
}

func TestSearchDeadlockQuery(t *testing.T) {
	rs := search(t, countdown(t), nil, "E F deadlock && A.L0")
	r := rs.Queries[0]
	if !r.Satisfied {
		t.Fatal(JS(r))
	}
	if v := r.Witness[len(r.Witness)-1].Symbols["x"]; !v.Equal(symbols.IntVal(0)) {
		t.Fatal(r.Witness)
	}
}

func TestSearchUrgentBlocksTock(t *testing.T) {
	ctx := context.Background()
	n, err := core.DoorNetwork(ctx, core.Incrementer("y"))
	if err != nil {
		t.Fatal(err)
	}
	// B is urgent at M0 and always enabled there, so the initial
	// state must tick before y can change.
	n.Components["B"] = &core.Component{
		Initial:   "M0",
		Locations: map[string]*core.Location{"M0": {Urgent: true}, "M1": {}},
		Edges:     []*core.Edge{{Id: "go", Source: "M0", Target: "M1"}},
	}
	if err = n.Compile(ctx, nil, true); err != nil {
		t.Fatal(err)
	}

	rs := search(t, n, nil, "E F y > 0 && B.M0")
	if r := rs.Queries[0]; r.Satisfied {
		t.Fatal(JS(r))
	}

	rs = search(t, n, nil, "E F y > 0")
	r := rs.Queries[0]
	if !r.Satisfied {
		t.Fatal(JS(r))
	}
	if r.Via[1] != "B.go" {
		t.Fatal(r.Via)
	}
}

func TestSearchCancelled(t *testing.T) {
	n := countdown(t)
	qs := []*ctl.Query{ctl.NewCompiler(n).MustCompile("E F x == 99")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rs, err := Search(ctx, n, qs, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Outcome != Cancelled || rs.Queries[0].Answered {
		t.Fatal(JS(rs))
	}
}

func TestSearchNotCompiled(t *testing.T) {
	if _, err := Search(context.Background(), &core.Network{}, nil, nil, nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTraceCycle(t *testing.T) {
	s := &searcher{passed: make(passed)}
	a := &record{state: &core.State{}, hash: 1, pred: 2}
	b := &record{state: &core.State{}, hash: 2, pred: 1}
	s.passed[1], s.passed[2] = a, b

	_, _, err := s.trace(1)
	var tc *TraceCycle
	if !errors.As(err, &tc) {
		t.Fatal(err)
	}
	if len(s.passed) < tc.Steps-1 {
		t.Fatal(tc.Steps)
	}

	delete(s.passed, 2)
	_, _, err = s.trace(1)
	var tb *TraceBroken
	if !errors.As(err, &tb) || tb.Hash != 2 {
		t.Fatal(err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{First, Last, Random, Panic} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Fatal(s, got, err)
		}
	}
	if _, err := ParseStrategy("sideways"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSearchHashCollision(t *testing.T) {
	n := countdown(t)
	qs, err := ctl.NewCompiler(n).CompileAll([]string{"E F x == 0"})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	cfg := &core.Config{
		Logger:   util.NewLogger(slog.LevelWarn, "text", &buf),
		Warnings: core.NewWarnings(),
	}
	opts := DefaultOptions()
	opts.hash = func(*core.State) uint64 { return 7 }

	rs, err := Search(context.Background(), n, qs, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	// Every successor looks like the initial state and is dropped.
	if rs.Outcome != Exhausted || rs.Explored != 1 {
		t.Fatal(rs.Outcome, rs.Explored)
	}
	if r := rs.Queries[0]; r.Satisfied {
		t.Fatal(JS(r))
	}
	if out := buf.String(); !strings.Contains(out, "distinct states share a hash") || !strings.Contains(out, "hash_collision") {
		t.Fatal(out)
	}

	// With the warning disabled nothing is logged.
	buf.Reset()
	if err = cfg.Warnings.Disable("hash_collision"); err != nil {
		t.Fatal(err)
	}
	if _, err = Search(context.Background(), n, qs, cfg, opts); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "hash_collision") {
		t.Fatal(buf.String())
	}
}
