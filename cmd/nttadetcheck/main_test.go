package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/ntta/core"
	. "github.com/Comcast/ntta/util/testutil"
)

func TestCheck(t *testing.T) {
	n, err := core.CountdownNetwork(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &core.Config{Logger: Logger(t)}

	reports, err := check(n, &inputs{known: []string{"x := 2"}}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 0 {
		t.Fatal(JS(reports))
	}

	reports, err = check(n, &inputs{conditions: []string{"x <= 0"}}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Location != "L0" {
		t.Fatal(JS(reports))
	}

	var buf bytes.Buffer
	if err = write(&buf, reports, false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "possible deadlock in A at location L0") {
		t.Fatal(buf.String())
	}

	buf.Reset()
	if err = write(&buf, nil, true); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatal(buf.String())
	}

	if _, err = check(n, &inputs{conditions: []string{"nope > 1"}}, cfg); err == nil {
		t.Fatal("expected an unknown identifier")
	}
}
