package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/ntta/core"
)

func TestMermaid(t *testing.T) {
	n, err := core.CountdownNetwork(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Mermaid(n, &buf, nil, nil); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{
		"graph TB",
		"subgraph A",
		`n1(["L0"])`,
		"x := x - 1",
		"n1 ",
		"--> n2",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in\n%s", want, s)
		}
	}
}
