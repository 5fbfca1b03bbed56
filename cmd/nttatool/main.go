// Command nttatool has utilities for network documents.
//
//	nttatool analyze -f net.yaml
//	nttatool dot -f net.yaml > net.dot
//	nttatool mermaid -f net.yaml
//	nttatool png -f net.yaml -o net
//	nttatool yamltojson [-p] < net.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/loader"
	"github.com/Comcast/ntta/symbols"
	"github.com/Comcast/ntta/tools"
	"github.com/Comcast/ntta/util"

	"github.com/jsccast/yaml"
)

func main() {
	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "yamltojson":
		fs := flag.NewFlagSet("yamltojson", flag.ContinueOnError)
		pretty := fs.Bool("p", false, "pretty-print")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return yamlToJSON(in, out, *pretty)

	case "analyze", "dot", "mermaid", "png":
		var files, ignore util.StringsFlag
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.Var(&files, "f", "network file or directory (repeatable)")
		fs.Var(&ignore, "i", "glob of files to ignore (repeatable)")
		basename := fs.String("o", "network", "basename for png output")
		if err := fs.Parse(args); err != nil {
			return err
		}

		n, err := load(files, ignore, cmd == "analyze")
		if err != nil {
			return err
		}

		switch cmd {
		case "analyze":
			a, err := tools.Analyze(n)
			if err != nil {
				return err
			}
			js, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s\n", js)
			return err
		case "dot":
			return tools.Dot(n, out, nil)
		case "mermaid":
			return tools.Mermaid(n, out, nil, nil)
		default:
			filename, err := tools.PNG(n, *basename, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s\n", filename)
			return err
		}

	default:
		Usage()
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

// load reads the network.  For analysis, a network that doesn't
// compile is still returned so that its problems can be reported.
func load(files, ignore []string, lenient bool) (*core.Network, error) {
	l := loader.NewLoader(nil)
	l.Ignore = ignore

	n, ds, err := l.Load(context.Background(), files...)
	if err == nil {
		return n, nil
	}
	if _, is := core.AsDiagnostics(err); !is || !lenient {
		return nil, err
	}

	for _, d := range ds {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}

	// Merge the documents without compiling.
	paths, err := l.Files(files)
	if err != nil {
		return nil, err
	}
	merged := &core.Network{
		Symbols:    symbols.NewTable(),
		External:   symbols.NewTable(),
		Components: make(map[string]*core.Component),
	}
	for _, filename := range paths {
		bs, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		doc, err := l.Decode(filename, bs)
		if err != nil {
			return nil, err
		}
		if merged.Name == "" {
			merged.Name = doc.Name
		}
		merged.Symbols = merged.Symbols.Merge(doc.Symbols)
		merged.External = merged.External.Merge(doc.External)
		for name, c := range doc.Components {
			merged.Components[name] = c
		}
	}
	return merged, nil
}

func yamlToJSON(in io.Reader, out io.Writer, pretty bool) error {
	bs, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var n *core.Network
	if err = yaml.Unmarshal(bs, &n); err != nil {
		return err
	}

	if pretty {
		bs, err = json.MarshalIndent(&n, "", "  ")
	} else {
		bs, err = json.Marshal(&n)
	}
	if err != nil {
		return err
	}

	_, err = out.Write(append(bs, '\n'))
	return err
}

func Usage() {
	fmt.Printf("Subcommands:\n\n")
	fmt.Printf("  analyze -f FILE...    report structure as JSON\n")
	fmt.Printf("  dot -f FILE...        Graphviz dot\n")
	fmt.Printf("  mermaid -f FILE...    Mermaid graph\n")
	fmt.Printf("  png -f FILE... -o B   B.dot and B.png (needs dot)\n")
	fmt.Printf("  yamltojson [-p]       convert a network document on stdin\n\n")
}
