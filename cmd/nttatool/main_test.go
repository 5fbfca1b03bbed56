package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const netYAML = `
name: tiny
symbols: {x: 0}
components:
  A:
    initial: L0
    locations: {L0: {}, L1: {}}
    edges:
      - {id: go, source: L0, target: L1, guard: "x == 0", update: "x := 1"}
`

func TestYAMLToJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run("yamltojson", nil, strings.NewReader(netYAML), &out); err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m["name"] != "tiny" {
		t.Fatal(out.String())
	}
}

func TestSubcommands(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tiny.yaml")
	if err := os.WriteFile(filename, []byte(netYAML), 0644); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		cmd  string
		want string
	}{
		{"analyze", `"terminal": [`},
		{"dot", `"A.L0" -> "A.L1"`},
		{"mermaid", "subgraph A"},
	} {
		t.Run(tc.cmd, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tc.cmd, []string{"-f", filename}, nil, &out); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tc.want) {
				t.Fatalf("missing %q in\n%s", tc.want, out.String())
			}
		})
	}

	if err := run("bogus", nil, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestAnalyzeBroken(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "broken.yaml")
	broken := strings.Replace(netYAML, "target: L1", "target: L7", 1)
	if err := os.WriteFile(filename, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run("analyze", []string{"-f", filename}, nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"missingTargets"`) {
		t.Fatal(out.String())
	}

	if err := run("dot", []string{"-f", filename}, nil, &out); err == nil {
		t.Fatal("dot should refuse a broken network")
	}
}
