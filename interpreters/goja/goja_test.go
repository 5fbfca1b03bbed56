/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package goja

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
	. "github.com/Comcast/ntta/util/testutil"
)

func run(t *testing.T, i *Interpreter, code interface{}, env symbols.Table, props core.Props) (*core.Execution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	return i.Exec(ctx, env, props, code, compiled)
}

func TestTockSimple(t *testing.T) {
	env := symbols.NewTable().Put("y", symbols.IntVal(1))
	exe, err := run(t, NewInterpreter(), `return {y: _.env.y + 1};`, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := exe.Delta["y"]; !v.Equal(symbols.IntVal(2)) {
		t.Fatal(exe.Delta)
	}
}

func TestTockCoercesToEnvKind(t *testing.T) {
	env := symbols.NewTable().
		Put("r", symbols.RealVal(0.5)).
		Put("n", symbols.IntVal(0))
	exe, err := run(t, NewInterpreter(), `return {r: 2, n: 3.75, fresh: "hi"};`, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := exe.Delta["r"]; !v.Equal(symbols.RealVal(2)) {
		t.Fatal(exe.Delta)
	}
	if v := exe.Delta["n"]; !v.Equal(symbols.IntVal(3)) {
		t.Fatal(exe.Delta)
	}
	if v := exe.Delta["fresh"]; !v.Equal(symbols.StringVal("hi")) {
		t.Fatal(exe.Delta)
	}
}

func TestTockBadKind(t *testing.T) {
	env := symbols.NewTable().Put("b", symbols.BoolVal(false))
	if _, err := run(t, NewInterpreter(), `return {b: "yes"};`, env, nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTockProps(t *testing.T) {
	props := core.Props{"step": 5}
	env := symbols.NewTable().Put("y", symbols.IntVal(1))
	exe, err := run(t, NewInterpreter(), `_.log(_.props); return {y: _.env.y + _.props.step};`, env, props)
	if err != nil {
		t.Fatal(err)
	}
	if v := exe.Delta["y"]; !v.Equal(symbols.IntVal(6)) {
		t.Fatal(exe.Delta)
	}
	if len(exe.Traces.Messages) != 1 {
		t.Fatal(JS(exe.Traces))
	}
}

func TestTockNothing(t *testing.T) {
	exe, err := run(t, NewInterpreter(), `return null;`, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.Delta) != 0 {
		t.Fatal(exe.Delta)
	}
}

func TestTockNotAnObject(t *testing.T) {
	if _, err := run(t, NewInterpreter(), `return 42;`, nil, nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTockTimeout(t *testing.T) {
	code := `for (;;) { } return null;`

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	i := NewInterpreter()
	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = i.Exec(ctx, nil, nil, code, compiled); err == nil {
		t.Fatal("didn't timeout")
	}
	if err != Interrupted {
		t.Fatalf("surprised by \"%s\"", err)
	}
}

func TestTockError(t *testing.T) {
	if _, err := run(t, NewInterpreter(), `likes + tacos; return null;`, nil, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestCronNext(t *testing.T) {
	i := NewInterpreter()
	i.Now = func() time.Time {
		return time.Date(2020, 1, 1, 12, 30, 0, 0, time.UTC)
	}
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	code := fmt.Sprintf(`return {next: _.cronNext("0 * * * *", %d), later: _.cronNext("0 * * * *")};`, from)

	env := symbols.NewTable().Put("next", symbols.TimerVal(0))
	exe, err := run(t, i, code, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC).UnixMilli()
	if v := exe.Delta["next"]; !v.Equal(symbols.TimerVal(float64(want))) {
		t.Fatal(exe.Delta)
	}
	want = time.Date(2020, 1, 1, 13, 0, 0, 0, time.UTC).UnixMilli()
	if v := exe.Delta["later"]; !v.Equal(symbols.IntVal(want)) {
		t.Fatal(exe.Delta)
	}
}

func TestCronNextBad(t *testing.T) {
	if _, err := run(t, NewInterpreter(), `return {x: _.cronNext("tacos")};`, nil, nil); err == nil {
		t.Fatal("should have protested")
	}
}

func TestLibraries(t *testing.T) {
	i := NewInterpreter()
	i.Libraries = Inline{
		"inc": `function inc(x) { return x + 1; }`,
	}
	src := map[string]interface{}{
		"requires": []interface{}{"inc"},
		"code":     `return {y: inc(_.env.y)};`,
	}
	env := symbols.NewTable().Put("y", symbols.IntVal(41))
	exe, err := run(t, i, src, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := exe.Delta["y"]; !v.Equal(symbols.IntVal(42)) {
		t.Fatal(exe.Delta)
	}

	src["requires"] = "missing"
	if _, err = i.Compile(context.Background(), src); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLibraryHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `function double(x) { return 2 * x; }`)
	}))
	defer ts.Close()

	i := NewInterpreter()
	src := map[string]interface{}{
		"requires": ts.URL,
		"code":     `return {y: double(_.env.y)};`,
	}
	env := symbols.NewTable().Put("y", symbols.IntVal(4))
	exe, err := run(t, i, src, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := exe.Delta["y"]; !v.Equal(symbols.IntVal(8)) {
		t.Fatal(exe.Delta)
	}
}

func TestTockerSourceUsesGoja(t *testing.T) {
	ctx := context.Background()
	n, err := core.DoorNetwork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	n.TockerSources = []*core.TockerSource{{
		Name:        "bump",
		Interpreter: "goja",
		Source:      `return {y: _.env.y + 1};`,
	}}
	if err = n.Compile(ctx, nil, true); err != nil {
		t.Fatal(err)
	}
	changes, err := n.Tocks(ctx, nil, n.InitialState())
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatal(changes)
	}
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript(map[interface{}]interface{}{
		"code":     "return {};",
		"requires": []interface{}{"file://a.js", "file://b.js"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Code != "return {};" || len(s.Requires) != 2 || s.Requires[1] != "file://b.js" {
		t.Fatal(JS(s))
	}

	for _, bad := range []interface{}{
		42,
		map[string]interface{}{"requires": "x"},
		map[string]interface{}{"code": "", "requires": []interface{}{1}},
	} {
		if _, err := ParseScript(bad); err == nil {
			t.Fatalf("%#v should have failed", bad)
		}
	}
}
