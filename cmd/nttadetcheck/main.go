// Command nttadetcheck looks for locations where a component could
// get stuck.
//
//	nttadetcheck -f net.yaml -n A -k 'x := 2' -c 'y < 10'
//
// For each location of each instance, it asks whether every outgoing
// guard could be false at once.  The exit code is 1 if some location
// could deadlock.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/interpreters"
	"github.com/Comcast/ntta/plugins"
	"github.com/Comcast/ntta/util"
	"github.com/Comcast/ntta/verifier"
)

func main() {
	os.Exit(run())
}

// inputs are the instances, known declarations, and conditions from
// flags and files.
type inputs struct {
	instances, known, conditions []string
}

func (in *inputs) addFile(filename string, want func(*ctl.QueryFile) []string, to *[]string) error {
	if filename == "" {
		return nil
	}
	qf, err := ctl.LoadQueryFile(filename)
	if err != nil {
		return err
	}
	*to = append(*to, want(qf)...)
	return nil
}

func run() int {
	var (
		files, ignore, instances, known, conditions, disabled util.StringsFlag

		parserName     = flag.String("p", "yaml", "network parser")
		instancesFile  = flag.String("N", "", "file with instances")
		knownFile      = flag.String("K", "", "file with known declarations")
		conditionsFile = flag.String("C", "", "file with conditions")
		list           = flag.Bool("l", false, "list instances and exit")
		jsonOut        = flag.Bool("j", false, "write reports as JSON")
		noWarnings     = flag.Bool("m", false, "disable all warnings")
		verbosity      = flag.Int("v", 2, "verbosity from 0 (errors) to 6 (traces)")
	)

	flag.Var(&files, "f", "network file or directory (repeatable)")
	flag.Var(&ignore, "i", "glob of files to ignore (repeatable)")
	flag.Var(&instances, "n", "instance to check (repeatable; default all)")
	flag.Var(&known, "k", "known declaration like 'x := 2' (repeatable)")
	flag.Var(&conditions, "c", "extra condition (repeatable)")
	flag.Var(&disabled, "w", "warning to disable (repeatable)")

	flag.Parse()

	logger := util.NewLogger(util.Verbosity(*verbosity), "text", os.Stderr)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parser, err := plugins.Standard().Parser(*parserName)
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

	if *list {
		for _, name := range net.ComponentNames() {
			fmt.Println(name)
		}
		return 0
	}

	in := &inputs{
		instances:  instances,
		known:      known,
		conditions: conditions,
	}
	for _, f := range []struct {
		filename string
		want     func(*ctl.QueryFile) []string
		to       *[]string
	}{
		{*instancesFile, func(qf *ctl.QueryFile) []string { return qf.Instances }, &in.instances},
		{*knownFile, func(qf *ctl.QueryFile) []string { return qf.Known }, &in.known},
		{*conditionsFile, func(qf *ctl.QueryFile) []string { return qf.Conditions }, &in.conditions},
	} {
		if err := in.addFile(f.filename, f.want, f.to); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	}

	reports, err := check(net, in, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err = write(os.Stdout, reports, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if 0 < len(reports) {
		return 1
	}
	return 0
}

func check(net *core.Network, in *inputs, cfg *core.Config) ([]*verifier.DeadlockReport, error) {
	k, err := ctl.Known(in.known)
	if err != nil {
		return nil, err
	}

	conds, err := ctl.Conditions(in.conditions, k, net.Symbols, net.External)
	if err != nil {
		return nil, err
	}

	return verifier.CheckDeadlocks(net, in.instances, k, conds, cfg)
}

func write(w io.Writer, reports []*verifier.DeadlockReport, asJSON bool) error {
	if asJSON {
		if reports == nil {
			reports = []*verifier.DeadlockReport{}
		}
		js, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", js)
		return err
	}
	if len(reports) == 0 {
		_, err := fmt.Fprintf(w, "no possible deadlocks\n")
		return err
	}
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "%s\n", r); err != nil {
			return err
		}
	}
	return nil
}
