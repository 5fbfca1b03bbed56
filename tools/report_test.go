package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/ctl"
	"github.com/Comcast/ntta/verifier"
)

func TestRenderReportHTML(t *testing.T) {
	ctx := context.Background()
	n, err := core.CountdownNetwork(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	q, err := ctl.NewCompiler(n).Compile("E F x == 0")
	if err != nil {
		t.Fatal(err)
	}
	res, err := verifier.Search(ctx, n, []*ctl.Query{q}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, err := Analyze(n)
	if err != nil {
		t.Fatal(err)
	}

	r := &Report{
		Run:       "r1",
		Network:   n.Name,
		At:        time.Now(),
		Results:   res,
		Analysis:  a,
		Deadlocks: []*verifier.DeadlockReport{},
	}

	var buf bytes.Buffer
	if err := RenderReportHTML(r, &buf, []string{"/static/report.css"}); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{
		"<h1>Verification of countdown</h1>",
		"<table>",
		"<td>yes</td>",
		"No possible deadlocks.",
		"report.css",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in\n%s", want, s)
		}
	}
}
