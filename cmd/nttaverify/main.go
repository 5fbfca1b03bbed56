// Command nttaverify answers reachability queries about a network.
//
//	nttaverify -f door.yaml -Q 'E F A.L1' -t interesting
//
// The exit code is 0 when every answered query is satisfied, 1 when
// some answered query isn't, and 2 when something went wrong.
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

	"github.com/Comcast/ntta"
	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/interpreters"
	"github.com/Comcast/ntta/plugins"
	"github.com/Comcast/ntta/storage"
	"github.com/Comcast/ntta/storage/bolt"
	"github.com/Comcast/ntta/tools"
	"github.com/Comcast/ntta/util"
	"github.com/Comcast/ntta/verifier"

	"gopkg.in/yaml.v2"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		files, ignore, queries, tockerSpecs, disabled util.StringsFlag

		parserName = flag.String("p", "yaml", "network parser")
		queryFile  = flag.String("q", "", "query file (JSON or YAML)")
		strategy   = flag.String("s", "first", "pick strategy: first, last, random, or panic")
		seed       = flag.Int64("seed", 0, "seed for the random strategy (0 means the clock)")

		noWarnings   = flag.Bool("m", false, "disable all warnings")
		listWarnings = flag.Bool("W", false, "list warnings and exit")
		listPlugins  = flag.Bool("L", false, "list plugins and exit")

		jsonOut     = flag.Bool("j", false, "write results as JSON")
		yamlOut     = flag.Bool("y", false, "write results as YAML")
		resultsFile = flag.String("r", "", "write results to this file instead of stdout")
		dbFile      = flag.String("db", "", "also store results in this bolt file")
		htmlFile    = flag.String("html", "", "write an HTML report to this file")
		noTrace     = flag.Bool("notrace", false, "don't reconstruct witness traces")

		verbosity = flag.Int("v", 2, "verbosity from 0 (errors) to 6 (traces)")
		logFormat = flag.String("log-format", "text", "log format: text or json")
		version   = flag.Bool("V", false, "print the version and exit")
	)

	flag.Var(&files, "f", "network file or directory (repeatable)")
	flag.Var(&ignore, "i", "glob of files to ignore (repeatable)")
	flag.Var(&queries, "Q", "query (repeatable)")
	flag.Var(&tockerSpecs, "t", "tocker like pipe(in;out) (repeatable)")
	flag.Var(&disabled, "w", "warning to disable (repeatable)")

	flag.Parse()

	registry := plugins.Standard()

	switch {
	case *version:
		fmt.Println(ntta.Version)
		return 0
	case *listWarnings:
		for _, w := range core.ListWarnings() {
			fmt.Printf("%-20s %s\n", w, core.WarningDescriptions[w])
		}
		return 0
	case *listPlugins:
		for _, line := range registry.List() {
			fmt.Println(line)
		}
		return 0
	}

	logger := util.NewLogger(util.Verbosity(*verbosity), *logFormat, os.Stderr)

	ws := core.NewWarnings()
	if *noWarnings {
		ws.DisableAll()
	}
	if err := ws.Disable(disabled...); err != nil {
		log.Fatal(err)
	}

	cfg := &core.Config{
		Logger:       logger,
		Warnings:     ws,
		Interpreters: interpreters.Standard(logger),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "error: no network files (use -f)\n")
		return 2
	}

	parser, err := registry.Parser(*parserName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	net, ds, err := parser.Parse(ctx, files, ignore, cfg)
	for _, d := range ds {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if err != nil {
		if _, is := core.AsDiagnostics(err); !is {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 2
	}

	net.Tockers = append(net.Tockers, registry.BuildTockers(tockerSpecs, net, cfg)...)
	defer closeTockers(net.Tockers)

	texts := []string(queries)
	if *queryFile != "" {
		qf, err := ctl.LoadQueryFile(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		texts = append(texts, qf.Queries...)
	}

	qs, err := ctl.NewCompiler(net).CompileAll(texts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	opts := verifier.DefaultOptions()
	if opts.Strategy, err = verifier.ParseStrategy(*strategy); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewSource(*seed))
	}
	opts.NoTrace = *noTrace

	then := time.Now()
	cfg.Log().Info("search", "network", net.Name, "queries", len(qs), "strategy", opts.Strategy.String(), "at", core.Timestamp())
	res, err := verifier.Search(ctx, net, qs, cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	out := io.Writer(os.Stdout)
	if *resultsFile != "" {
		f, err := os.Create(*resultsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		defer f.Close()
		out = f
	}

	switch {
	case *jsonOut:
		js, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		fmt.Fprintf(out, "%s\n", js)
	case *yamlOut:
		bs, err := yaml.Marshal(res)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		out.Write(bs)
	default:
		writeText(out, res)
	}

	runID := storage.NewRunID()

	if *dbFile != "" {
		if err := store(ctx, *dbFile, storage.Records(runID, net.Name, then, res)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		logger.Info("stored results", "run", runID, "db", *dbFile)
	}

	if *htmlFile != "" {
		a, err := tools.Analyze(net)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		f, err := os.Create(*htmlFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		r := &tools.Report{
			Run:      runID,
			Network:  net.Name,
			At:       then,
			Results:  res,
			Analysis: a,
		}
		if err = tools.RenderReportHTML(r, f, nil); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		if err = f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	}

	return exitCode(res)
}

// exitCode is 1 when some answered query isn't satisfied.
func exitCode(res *verifier.Results) int {
	for _, q := range res.Queries {
		if q.Answered && !q.Satisfied {
			return 1
		}
	}
	return 0
}

func writeText(w io.Writer, res *verifier.Results) {
	fmt.Fprintf(w, "search %s after %d states (%s)\n", res.Outcome, res.Explored, res.Elapsed)
	for _, q := range res.Queries {
		answer := "no"
		switch {
		case q.Unsupported:
			answer = "unsupported"
		case q.Error != "":
			answer = "error: " + q.Error
		case !q.Answered:
			answer = "unknown"
		case q.Satisfied:
			answer = "yes"
		}
		fmt.Fprintf(w, "%s: %s\n", q.Text, answer)
		for i, st := range q.Witness {
			via := ""
			if i < len(q.Via) {
				via = q.Via[i]
			}
			fmt.Fprintf(w, "  %-16s %s\n", via, st)
		}
		if q.TraceError != "" {
			fmt.Fprintf(w, "  trace: %s\n", q.TraceError)
		}
	}
}

func store(ctx context.Context, filename string, rs []*storage.Record) error {
	s, err := bolt.NewStorage(filename)
	if err != nil {
		return err
	}
	if err = s.Open(ctx); err != nil {
		return err
	}
	defer s.Close(ctx)
	if 0 < len(rs) {
		return s.WriteResults(ctx, rs[0].Run, rs)
	}
	return nil
}

// closeTockers releases what remote and pipe tockers hold.
func closeTockers(ts []core.Tocker) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, t := range ts {
		switch vv := t.(type) {
		case interface{ Close(context.Context) error }:
			vv.Close(ctx)
		case io.Closer:
			vv.Close()
		}
	}
}
