package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/ntta/core"
	. "github.com/Comcast/ntta/util/testutil"
)

func TestParseTockerSpec(t *testing.T) {
	for _, tc := range []struct {
		in, name, arg string
		err           bool
	}{
		{"interesting", "interesting", "", false},
		{"pipe(in;out)", "pipe", "in;out", false},
		{" ws(ws://localhost:8080/env) ", "ws", "ws://localhost:8080/env", false},
		{"mqtt(tcp://h:1883,a,b)", "mqtt", "tcp://h:1883,a,b", false},
		{"pipe(in;out", "", "", true},
		{"(x)", "", "", true},
		{"", "", "", true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			name, arg, err := ParseTockerSpec(tc.in)
			if tc.err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if name != tc.name || arg != tc.arg {
				t.Fatalf("%q %q", name, arg)
			}
		})
	}
}

func TestBuildTockers(t *testing.T) {
	ctx := context.Background()
	n, err := core.DoorNetwork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &core.Config{Logger: Logger(t)}

	r := Standard()
	ts := r.BuildTockers([]string{
		"interesting",
		"pipe(nosemicolon)",
		"bogus(1)",
		"mqtt(tcp://localhost:1883,req)",
		"ws()",
		"ws(ws://localhost:1/env)",
		"pipe(a;b)",
	}, n, cfg)

	if len(ts) != 3 {
		t.Fatalf("built %d tockers: %s", len(ts), JS(ts))
	}
	if s, is := ts[0].(interface{ String() string }); !is || s.String() != "interesting" {
		t.Fatal(ts[0])
	}
}

func TestStandardParsers(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "net.json")
	doc := `{"components": {"A": {"initial": "L0", "locations": {"L0": {}}}}}`
	if err := os.WriteFile(filename, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	r := Standard()
	for _, name := range []string{"yaml", "json"} {
		p, err := r.Parser(name)
		if err != nil {
			t.Fatal(err)
		}
		n, _, err := p.Parse(context.Background(), []string{dir}, nil, nil)
		if err != nil {
			t.Fatal(name, err)
		}
		if n.InitialState().At("A") != "L0" {
			t.Fatal(name)
		}
	}

	if _, err := r.Parser("xml"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestList(t *testing.T) {
	ls := Standard().List()
	if len(ls) != 6 {
		t.Fatal(ls)
	}
	if !strings.HasPrefix(ls[0], "parser json") {
		t.Fatal(ls[0])
	}
}
