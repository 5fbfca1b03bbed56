package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
	. "github.com/Comcast/ntta/util/testutil"
)

const doorYAML = `
name: door
doc: A door that opens when y is positive.
external:
  y: 0
components:
  A:
    initial: L0
    locations:
      L0: {}
      L1: {urgent: true}
    edges:
      - {id: open, source: L0, target: L1, guard: "y > 0"}
`

const counterJSON = `{
  "symbols": {"x": 2},
  "components": {
    "B": {
      "initial": "M0",
      "locations": {"M0": {}, "M1": {}},
      "edges": [
        {"id": "dec", "source": "M0", "target": "M1", "guard": "x > 0", "update": "x := x - 1"}
      ]
    }
  }
}`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func titles(ds core.Diagnostics) map[string]bool {
	acc := make(map[string]bool)
	for _, d := range ds {
		acc[d.Title] = true
	}
	return acc
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	filename := write(t, dir, "door.yaml", doorYAML)

	n, ds, err := NewLoader(&core.Config{Logger: Logger(t)}).Load(context.Background(), filename)
	if err != nil {
		t.Fatal(err)
	}
	if 0 < len(ds) {
		t.Fatal(ds)
	}
	if n.Name != "door" {
		t.Fatal(n.Name)
	}
	if !n.Compiled() {
		t.Fatal("not compiled")
	}
	a, err := n.Component("A")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Locations["L1"].Urgent {
		t.Fatal("L1 should be urgent")
	}
	if !n.External["y"].Equal(symbols.IntVal(0)) {
		t.Fatal(JS(n.External))
	}
	if e := a.Out("L0")[0]; e.Guard == nil || !e.Guard.Mentions("y") {
		t.Fatal("guard not compiled")
	}
}

func TestLoadMerge(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "door.yaml", doorYAML)
	write(t, dir, "sub/counter.json", counterJSON)
	write(t, dir, "notes.txt", "not a network")

	n, _, err := NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.ComponentNames(); len(got) != 2 {
		t.Fatal(got)
	}
	if !n.Symbols.Has("x") || !n.External.Has("y") {
		t.Fatal(n.Symbols, n.External)
	}

	st := n.InitialState()
	if st.At("B") != "M0" {
		t.Fatal(st)
	}
}

func TestLoadIgnore(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "door.yaml", doorYAML)
	write(t, dir, "skip/counter.json", counterJSON)
	write(t, dir, "skip.yaml", "this: [is not a network")

	l := NewLoader(nil)
	l.Ignore = []string{"skip*"}

	files, err := l.Files([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatal(files)
	}

	n, _, err := l.Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = n.Component("B"); err == nil {
		t.Fatal("B should have been ignored")
	}

	l.Ignore = []string{"["}
	if _, err = l.Files([]string{dir}); err == nil {
		t.Fatal("expected a bad pattern error")
	}
}

func TestLoadDiagnostics(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate", func(t *testing.T) {
		dir := t.TempDir()
		f1 := write(t, dir, "a.yaml", doorYAML)
		f2 := write(t, dir, "b.yaml", doorYAML)
		n, ds, err := NewLoader(nil).Load(ctx, f1, f2)
		if err == nil || n != nil {
			t.Fatal("expected failure")
		}
		if !titles(ds)["duplicate component"] {
			t.Fatal(ds)
		}
	})

	t.Run("overlap", func(t *testing.T) {
		dir := t.TempDir()
		f1 := write(t, dir, "a.yaml", doorYAML)
		f2 := write(t, dir, "b.json", counterJSON)
		f3 := write(t, dir, "c.yaml", "symbols:\n  y: 1\n  x: 3\n")
		n, ds, err := NewLoader(nil).Load(ctx, f1, f2, f3)
		if err != nil {
			t.Fatal(err)
		}
		ts := titles(ds)
		if !ts["overlapping symbol"] || !ts["conflicting symbol"] {
			t.Fatal(ds)
		}
		if ds.HasErrors() {
			t.Fatal(ds)
		}
		if !n.Symbols["x"].Equal(symbols.IntVal(2)) {
			t.Fatal("first declaration should win")
		}
	})

	t.Run("quiet", func(t *testing.T) {
		dir := t.TempDir()
		f1 := write(t, dir, "a.yaml", doorYAML)
		f3 := write(t, dir, "c.yaml", "symbols:\n  y: 1\n")
		ws := core.NewWarnings()
		ws.DisableAll()
		_, ds, err := NewLoader(&core.Config{Warnings: ws}).Load(ctx, f1, f3)
		if err != nil {
			t.Fatal(err)
		}
		if 0 < len(ds) {
			t.Fatal(ds)
		}
	})

	t.Run("syntax", func(t *testing.T) {
		dir := t.TempDir()
		f := write(t, dir, "bad.yaml", "components: [oops")
		_, ds, err := NewLoader(nil).Load(ctx, f)
		if err == nil {
			t.Fatal("expected failure")
		}
		if !titles(ds)["parse failed"] {
			t.Fatal(ds)
		}
	})

	t.Run("compile", func(t *testing.T) {
		dir := t.TempDir()
		f := write(t, dir, "bad.yaml", `
components:
  A:
    initial: L0
    locations: {L0: {}}
    edges:
      - {source: L0, target: L9, guard: "z > 0"}
`)
		_, ds, err := NewLoader(nil).Load(ctx, f)
		if err == nil {
			t.Fatal("expected failure")
		}
		if len(ds.Errors()) < 2 {
			t.Fatal(ds)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		if _, _, err := NewLoader(nil).Load(ctx, t.TempDir()); err == nil {
			t.Fatal("expected failure")
		}
	})
}

func TestDecodeFormat(t *testing.T) {
	l := &Loader{Format: "json"}
	if _, err := l.Decode("door.yaml", []byte(doorYAML)); err == nil {
		t.Fatal("YAML isn't JSON")
	}
	l.Format = "toml"
	if _, err := l.Decode("x", []byte("a = 1")); err == nil {
		t.Fatal("unknown format")
	}
	l.Format = ""
	n, err := l.Decode("empty.yaml", []byte("\n"))
	if err != nil || len(n.Components) != 0 {
		t.Fatal(n, err)
	}
}
