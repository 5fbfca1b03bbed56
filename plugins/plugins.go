// Package plugins is a static registry of network parsers and tocker
// factories.  Everything is registered at start-up.  Nothing is
// loaded dynamically.
package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/loader"
	"github.com/Comcast/ntta/tockers"

	"github.com/google/uuid"
)

// Parser makes a compiled network from files or directories.
type Parser interface {
	Parse(ctx context.Context, paths []string, ignore []string, cfg *core.Config) (*core.Network, core.Diagnostics, error)
}

// ParserFunc adapts a function to a Parser.
type ParserFunc func(ctx context.Context, paths []string, ignore []string, cfg *core.Config) (*core.Network, core.Diagnostics, error)

func (f ParserFunc) Parse(ctx context.Context, paths []string, ignore []string, cfg *core.Config) (*core.Network, core.Diagnostics, error) {
	return f(ctx, paths, ignore, cfg)
}

// TockerFactory builds a tocker from its argument for a (compiled)
// network.
type TockerFactory func(arg string, n *core.Network, cfg *core.Config) (core.Tocker, error)

// Registry holds the named parsers and tocker factories.
type Registry struct {
	Parsers map[string]Parser
	Tockers map[string]TockerFactory

	// Docs has a line of documentation for some names.
	Docs map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		Parsers: make(map[string]Parser),
		Tockers: make(map[string]TockerFactory),
		Docs:    make(map[string]string),
	}
}

// LoaderParser parses documents with a loader.Loader in the given
// format.
func LoaderParser(format string) Parser {
	return ParserFunc(func(ctx context.Context, paths []string, ignore []string, cfg *core.Config) (*core.Network, core.Diagnostics, error) {
		l := loader.NewLoader(cfg)
		l.Format = format
		l.Ignore = ignore
		return l.Load(ctx, paths...)
	})
}

// Standard returns a Registry with the built-in parsers and tockers.
func Standard() *Registry {
	r := NewRegistry()

	r.Parsers["yaml"] = LoaderParser("")
	r.Docs["parser:yaml"] = "YAML documents (JSON files too)"

	r.Parsers["json"] = LoaderParser("json")
	r.Docs["parser:json"] = "JSON documents"

	r.Tockers["interesting"] = func(arg string, n *core.Network, cfg *core.Config) (core.Tocker, error) {
		return tockers.NewInterestingTocker(n, cfg), nil
	}
	r.Docs["tocker:interesting"] = "external values that flip guards, found by the sat checker"

	r.Tockers["pipe"] = func(arg string, n *core.Network, cfg *core.Config) (core.Tocker, error) {
		return tockers.NewPipeTocker(arg)
	}
	r.Docs["tocker:pipe"] = "pipe(INPUT;OUTPUT): JSON lines over a pair of files"

	r.Tockers["mqtt"] = func(arg string, n *core.Network, cfg *core.Config) (core.Tocker, error) {
		parts := strings.Split(arg, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf(`mqtt tocker wants "broker,requestTopic,responseTopic", not %q`, arg)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		clientID := "ntta-" + uuid.New().String()
		c := tockers.NewMQTTCouplings(parts[0], clientID, parts[1], parts[2])
		return tockers.NewRemoteTocker("mqtt("+arg+")", c, cfg), nil
	}
	r.Docs["tocker:mqtt"] = "mqtt(BROKER,REQTOPIC,RESPTOPIC): request and reply over MQTT"

	r.Tockers["ws"] = func(arg string, n *core.Network, cfg *core.Config) (core.Tocker, error) {
		if arg == "" {
			return nil, fmt.Errorf("ws tocker needs a URL")
		}
		return tockers.NewRemoteTocker("ws("+arg+")", tockers.NewWSCouplings(arg), cfg), nil
	}
	r.Docs["tocker:ws"] = "ws(URL): request and reply over a websocket"

	return r
}

// ParseTockerSpec splits "name(arg)" into its parts.  A bare name has
// an empty argument.
func ParseTockerSpec(s string) (name, arg string, err error) {
	s = strings.TrimSpace(s)
	i := strings.Index(s, "(")
	if i < 0 {
		if s == "" {
			return "", "", fmt.Errorf("empty tocker spec")
		}
		return s, "", nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", fmt.Errorf("tocker spec %q lacks a closing parenthesis", s)
	}
	name = strings.TrimSpace(s[:i])
	if name == "" {
		return "", "", fmt.Errorf("tocker spec %q lacks a name", s)
	}
	return name, s[i+1 : len(s)-1], nil
}

// Parser finds a parser.
func (r *Registry) Parser(name string) (Parser, error) {
	p, have := r.Parsers[name]
	if !have {
		return nil, fmt.Errorf("unknown parser %q", name)
	}
	return p, nil
}

// BuildTockers makes tockers from specs like "pipe(in;out)".  A spec
// that can't be built raises a plugin_load_failed warning and is
// skipped.
func (r *Registry) BuildTockers(specs []string, n *core.Network, cfg *core.Config) []core.Tocker {
	var acc []core.Tocker
	for _, spec := range specs {
		t, err := r.BuildTocker(spec, n, cfg)
		if err != nil {
			cfg.Warn(core.WarnPluginLoadFailed, "tocker skipped", "tocker", spec, "error", err)
			continue
		}
		acc = append(acc, t)
	}
	return acc
}

func (r *Registry) BuildTocker(spec string, n *core.Network, cfg *core.Config) (core.Tocker, error) {
	name, arg, err := ParseTockerSpec(spec)
	if err != nil {
		return nil, err
	}
	f, have := r.Tockers[name]
	if !have {
		return nil, fmt.Errorf("unknown tocker %q", name)
	}
	return f(arg, n, cfg)
}

// List describes the registered plugins, one per line.
func (r *Registry) List() []string {
	var acc []string
	for name := range r.Parsers {
		acc = append(acc, r.line("parser", name))
	}
	for name := range r.Tockers {
		acc = append(acc, r.line("tocker", name))
	}
	sort.Strings(acc)
	return acc
}

func (r *Registry) line(kind, name string) string {
	s := kind + " " + name
	if doc := r.Docs[kind+":"+name]; doc != "" {
		s += ": " + doc
	}
	return s
}
