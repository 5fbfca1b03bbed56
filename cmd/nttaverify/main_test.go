package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/verifier"
)

func TestWriteText(t *testing.T) {
	ctx := context.Background()
	n, err := core.CountdownNetwork(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	qs, err := ctl.NewCompiler(n).CompileAll([]string{"E F x == 0", "A G x > 0", "E G true"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := verifier.Search(ctx, n, qs, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	writeText(&buf, res)
	s := buf.String()
	for _, want := range []string{
		"E F x == 0: yes",
		"A G x > 0: no",
		"E G true: unsupported",
		"init",
		"A.dec",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in\n%s", want, s)
		}
	}

	if exitCode(res) != 1 {
		t.Fatal("A G x > 0 is false")
	}
	res.Queries = res.Queries[:1]
	if exitCode(res) != 0 {
		t.Fatal("E F x == 0 is true")
	}
}
