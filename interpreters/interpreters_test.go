package interpreters

import (
	"context"
	"testing"

	"github.com/Comcast/ntta/symbols"
	. "github.com/Comcast/ntta/util/testutil"
)

func TestStandard(t *testing.T) {
	is := Standard(Logger(t))
	for _, name := range []string{"goja", "ecmascript", "noop"} {
		if _, have := is[name]; !have {
			t.Fatalf("no %s", name)
		}
	}

	ctx := context.Background()
	noop := is["noop"]
	x, err := noop.Compile(ctx, "anything")
	if err != nil {
		t.Fatal(err)
	}
	exe, err := noop.Exec(ctx, symbols.NewTable().Put("y", symbols.IntVal(1)), nil, "anything", x)
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.Delta) != 0 {
		t.Fatal(exe.Delta)
	}
}
