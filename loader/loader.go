// Package loader reads network documents.
//
// A document is YAML or JSON:
//
//	name: door
//	external:
//	  y: 0
//	components:
//	  A:
//	    initial: L0
//	    locations:
//	      L0: {}
//	      L1: {urgent: true}
//	    edges:
//	      - {id: open, source: L0, target: L1, guard: "y > 0"}
//
// Several documents can describe one network.  Their components and
// symbols are merged.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"

	"github.com/jsccast/yaml"
)

// Extensions are the file extensions considered when walking a
// directory.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader reads and merges network documents.
type Loader struct {
	// Format is "yaml" or "json".  YAML also reads JSON.  Empty
	// means decide by file extension.
	Format string

	// Ignore has glob patterns for files and directories to skip.
	// A pattern is matched against the base name and the whole
	// path.
	Ignore []string

	Cfg *core.Config
}

func NewLoader(cfg *core.Config) *Loader {
	return &Loader{
		Cfg: cfg,
	}
}

func (l *Loader) ignored(path string) (bool, error) {
	for _, pat := range l.Ignore {
		for _, s := range []string{filepath.Base(path), path} {
			matched, err := filepath.Match(pat, s)
			if err != nil {
				return false, fmt.Errorf("bad ignore pattern %q: %w", pat, err)
			}
			if matched {
				return true, nil
			}
		}
	}
	return false, nil
}

func wanted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, x := range Extensions {
		if ext == x {
			return true
		}
	}
	return false
}

// Files expands directories into the document files under them.
// Files named explicitly are kept whatever their extension.
func (l *Loader) Files(paths []string) ([]string, error) {
	var acc []string
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			skip, err := l.ignored(path)
			if err != nil {
				return nil, err
			}
			if !skip {
				acc = append(acc, path)
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path {
				skip, err := l.ignored(p)
				if err != nil {
					return err
				}
				if skip {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
			if !d.IsDir() && wanted(p) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		acc = append(acc, found...)
	}
	return acc, nil
}

// Decode parses one document.  An empty document gives an empty
// network.
func (l *Loader) Decode(filename string, bs []byte) (*core.Network, error) {
	var n core.Network
	if len(bytes.TrimSpace(bs)) == 0 {
		return &n, nil
	}

	format := l.Format
	if format == "" {
		format = "yaml"
		if strings.ToLower(filepath.Ext(filename)) == ".json" {
			format = "json"
		}
	}

	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(bs, &n)
	case "json":
		err = json.Unmarshal(bs, &n)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, &DocumentError{File: filename, Err: err}
	}
	return &n, nil
}

// DocumentError reports a document that couldn't be parsed.
type DocumentError struct {
	File string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("can't parse %s: %s", e.File, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Load reads the documents at the paths (files or directories),
// merges them, and compiles the result.
//
// The Diagnostics include warnings.  When they include errors, no
// network is returned and the error is the Diagnostics.
func (l *Loader) Load(ctx context.Context, paths ...string) (*core.Network, core.Diagnostics, error) {
	files, err := l.Files(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no network documents in %s", strings.Join(paths, ", "))
	}

	var (
		ds  core.Diagnostics
		net = &core.Network{
			Symbols:    symbols.NewTable(),
			External:   symbols.NewTable(),
			Components: make(map[string]*core.Component),
		}
	)

	for _, filename := range files {
		bs, err := os.ReadFile(filename)
		if err != nil {
			return nil, ds, err
		}
		doc, err := l.Decode(filename, bs)
		if err != nil {
			ds.Add(core.SeverityError, "parse failed", err.Error(), filename)
			continue
		}
		l.Cfg.Log().Debug("loaded document", "file", filename, "components", len(doc.Components))
		l.merge(net, doc, filename, &ds)
	}

	if net.Name == "" {
		base := filepath.Base(files[0])
		net.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if ds.HasErrors() {
		return nil, ds, ds
	}

	if err := net.Compile(ctx, l.Cfg, true); err != nil {
		more, is := core.AsDiagnostics(err)
		if !is {
			return nil, ds, err
		}
		ds = append(ds, more...)
		return nil, ds, ds
	}

	return net, ds, nil
}

// warn records a non-fatal problem unless parser warnings are
// disabled.
func (l *Loader) warn(ds *core.Diagnostics, title, msg string, elements ...string) {
	if l.Cfg != nil && !l.Cfg.Warnings.Enabled(core.WarnParser) {
		return
	}
	ds.Add(core.SeverityWarning, title, msg, elements...)
	l.Cfg.Warn(core.WarnParser, title, "message", msg, "elements", elements)
}

// merge adds the document's parts to the network.  The first
// declaration of a symbol wins.
func (l *Loader) merge(net, doc *core.Network, filename string, ds *core.Diagnostics) {
	if net.Name == "" {
		net.Name = doc.Name
	}
	if net.Doc == "" {
		net.Doc = doc.Doc
	}

	mergeSymbols := func(into, other symbols.Table, from symbols.Table, kind string) {
		for _, name := range from.Keys() {
			v := from[name]
			if was, have := into[name]; have {
				if !was.Equal(v) {
					l.warn(ds, "conflicting symbol",
						fmt.Sprintf("%s symbol %s is %s, not %s", kind, name, was, v), filename, name)
				}
				continue
			}
			if other.Has(name) {
				l.warn(ds, "overlapping symbol",
					fmt.Sprintf("%s is both internal and external", name), filename, name)
			}
			into.Put(name, v)
		}
	}
	mergeSymbols(net.Symbols, net.External, doc.Symbols, "internal")
	mergeSymbols(net.External, net.Symbols, doc.External, "external")

	names := make([]string, 0, len(doc.Components))
	for name := range doc.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, have := net.Components[name]; have {
			ds.Add(core.SeverityError, "duplicate component",
				fmt.Sprintf("component %s is declared more than once", name), filename, name)
			continue
		}
		net.Components[name] = doc.Components[name]
	}

	net.TockerSources = append(net.TockerSources, doc.TockerSources...)
}
