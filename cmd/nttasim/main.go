// Command nttasim walks a network and prints the states it visits.
//
// At each step a tick is preferred.  When no tick is possible (and
// no component is at an urgent location with an enabled edge), the
// tockers run.  With -random, a step picks among the possible
// changes at random; otherwise it takes the first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/interpreters"
	"github.com/Comcast/ntta/plugins"
	"github.com/Comcast/ntta/tools"
	"github.com/Comcast/ntta/util"
)

func main() {
	var (
		files, ignore, tockerSpecs, breakpoints util.StringsFlag

		parserName = flag.String("p", "yaml", "network parser")
		limit      = flag.Int("n", 100, "maximum number of steps")
		random     = flag.Bool("random", false, "pick changes at random")
		seed       = flag.Int64("seed", 0, "random seed (0 means the clock)")
		jsonOut    = flag.Bool("j", false, "write strides as JSON lines")
		dotFile    = flag.String("dot", "", "write a Graphviz file showing the last state")
		verbosity  = flag.Int("v", 2, "verbosity from 0 (errors) to 6 (traces)")
	)

	flag.Var(&files, "f", "network file or directory (repeatable)")
	flag.Var(&ignore, "i", "glob of files to ignore (repeatable)")
	flag.Var(&tockerSpecs, "t", "tocker like pipe(in;out) (repeatable)")
	flag.Var(&breakpoints, "b", "stop when this expression holds (repeatable)")

	flag.Parse()

	logger := util.NewLogger(util.Verbosity(*verbosity), "text", os.Stderr)
	cfg := &core.Config{
		Logger:       logger,
		Warnings:     core.NewWarnings(),
		Interpreters: interpreters.Standard(logger),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	registry := plugins.Standard()
	parser, err := registry.Parser(*parserName)
	if err != nil {
		log.Fatal(err)
	}

	net, ds, err := parser.Parse(ctx, files, ignore, cfg)
	for _, d := range ds {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if err != nil {
		log.Fatal(err)
	}
	net.Tockers = append(net.Tockers, registry.BuildTockers(tockerSpecs, net, cfg)...)

	c := &core.Control{
		Limit:       *limit,
		Breakpoints: make(map[string]core.Breakpoint, len(breakpoints)),
	}
	for _, src := range breakpoints {
		bp, err := Breakpoint(src, net)
		if err != nil {
			log.Fatal(err)
		}
		c.Breakpoints[src] = bp
	}
	if *random {
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		c.Choose = Chooser(rand.New(rand.NewSource(*seed)))
	}

	st := net.InitialState()
	walked, err := net.Walk(ctx, cfg, st, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	if err := Print(os.Stdout, st, walked, *jsonOut); err != nil {
		log.Fatal(err)
	}

	if *dotFile != "" {
		last := walked.To()
		if last == nil {
			last = st
		}
		f, err := os.Create(*dotFile)
		if err != nil {
			log.Fatal(err)
		}
		if err = tools.Dot(net, f, last); err != nil {
			log.Fatal(err)
		}
		if err = f.Close(); err != nil {
			log.Fatal(err)
		}
	}
}

// Breakpoint makes a breakpoint that fires when the expression holds.
func Breakpoint(src string, n *core.Network) (core.Breakpoint, error) {
	e, err := expr.Compile(src, n.Symbols, n.External)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, st *core.State) bool {
		ok, err := e.Holds(st.Env()...)
		return err == nil && ok
	}, nil
}

// Chooser picks changes at random.
func Chooser(r *rand.Rand) func([]*core.StateChange) int {
	return func(changes []*core.StateChange) int {
		return r.Intn(len(changes))
	}
}

// Print writes the initial state and each stride.
func Print(w io.Writer, init *core.State, walked *core.Walked, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, s := range walked.Strides {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	}
	fmt.Fprintf(w, "init -> %s\n", init)
	for _, s := range walked.Strides {
		fmt.Fprintf(w, "%s -> %s\n", s.Change, s.To)
	}
	stopped := walked.StoppedBecause.String()
	if walked.BreakpointId != "" {
		stopped += " at " + walked.BreakpointId
	}
	_, err := fmt.Fprintf(w, "%s\n", stopped)
	return err
}
