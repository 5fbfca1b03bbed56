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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
	"github.com/Comcast/ntta/util"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// init adds a Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements core.Intepreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// Tocker code sees the current environment at _.env and returns an
// object whose properties are the symbols to update.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Logger receives what code passes to _.log().  Defaults to
	// util.Discard.
	Logger *slog.Logger

	// Now, if not nil, is the clock for _.now().  Tests set it.
	Now func() time.Time

	// Libraries resolves the names listed in a script's
	// "requires".  Dir(".") if nil.
	Libraries Libraries
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) log() *slog.Logger {
	if i.Logger == nil {
		return util.Discard
	}
	return i.Logger
}

func (i *Interpreter) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}

func (i *Interpreter) libraries() Libraries {
	if i.Libraries == nil {
		return Dir(".")
	}
	return i.Libraries
}

// Libraries resolves the names a script lists under "requires".
type Libraries interface {
	Library(ctx context.Context, name string) (string, error)
}

// Dir resolves "file://" names relative to a directory and fetches
// "http://" and "https://" names.
type Dir string

func (d Dir) Library(ctx context.Context, name string) (string, error) {
	scheme, rest, ok := strings.Cut(name, "://")
	if !ok {
		return "", fmt.Errorf("library %q has no scheme", name)
	}
	switch scheme {
	case "file":
		bs, err := os.ReadFile(filepath.Join(string(d), rest))
		return string(bs), err
	case "http", "https":
		return fetch(ctx, name)
	}
	return "", fmt.Errorf("library %q: unsupported scheme %q", name, scheme)
}

func fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("library %s: %s", url, resp.Status)
	}
	bs, err := io.ReadAll(resp.Body)
	return string(bs), err
}

// Inline is a fixed set of named libraries.
type Inline map[string]string

func (in Inline) Library(ctx context.Context, name string) (string, error) {
	src, have := in[name]
	if !have {
		return "", fmt.Errorf("no library %q", name)
	}
	return src, nil
}

// Script is a tocker's code plus the libraries it requires.
type Script struct {
	Code     string   `json:"code" yaml:"code"`
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// ParseScript accepts either plain code or a map with "code" and an
// optional "requires" (a name or a list of names).
func ParseScript(src interface{}) (*Script, error) {
	var m map[string]interface{}
	switch vv := src.(type) {
	case string:
		return &Script{Code: vv}, nil
	case *Script:
		return vv, nil
	case map[string]interface{}:
		m = vv
	case map[interface{}]interface{}:
		m = make(map[string]interface{}, len(vv))
		for k, v := range vv {
			name, is := k.(string)
			if !is {
				return nil, fmt.Errorf("script key %v (%T) isn't a string", k, k)
			}
			m[name] = v
		}
	default:
		return nil, fmt.Errorf("script %T isn't code", src)
	}

	code, is := m["code"].(string)
	if !is {
		return nil, errors.New("script has no code")
	}
	s := &Script{Code: code}
	switch vv := m["requires"].(type) {
	case nil:
	case string:
		s.Requires = []string{vv}
	case []string:
		s.Requires = vv
	case []interface{}:
		for _, x := range vv {
			name, is := x.(string)
			if !is {
				return nil, fmt.Errorf("required library %v isn't a name", x)
			}
			s.Requires = append(s.Requires, name)
		}
	default:
		return nil, fmt.Errorf("requires %T isn't a list of names", vv)
	}
	return s, nil
}

// Compile resolves the script's libraries, puts them ahead of the
// code (which runs as the body of a function), and compiles the
// whole thing.
//
// Resolving libraries can block on the network.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	s, err := ParseScript(src)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, name := range s.Requires {
		lib, err := i.libraries().Library(ctx, name)
		if err != nil {
			return nil, err
		}
		b.WriteString(lib)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "(function() {\n%s\n}());\n", s.Code)

	p, err := goja.Compile("tocker", b.String(), true)
	if err != nil {
		return nil, fmt.Errorf("goja compile: %w", err)
	}
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Exec implements the Interpreter method of the same name.
//
// The following properties are available from the runtime at _.
//
//	env: the current symbols (internal and external) as plain values.
//	props: the TockerSource's properties.
//	log(x): log x (as JSON) at debug level.
//	now(): the current time in milliseconds since the epoch.
//	cronNext(expr, fromMillis): the next time (in milliseconds)
//	  the cron expression fires after fromMillis.
//
// The code should return an object of updates.  Each value is
// converted to the kind of the symbol it updates.
func (i *Interpreter) Exec(ctx context.Context, env symbols.Table, props core.Props, src interface{}, compiled interface{}) (*core.Execution, error) {
	exe := core.NewExecution(symbols.NewTable())

	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return exe, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return exe, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	o := goja.New()

	plain := make(map[string]interface{}, len(env))
	for name, v := range env {
		plain[name] = v.Interface()
	}

	_env := map[string]interface{}{
		"env": plain,
	}
	if props == nil {
		_env["props"] = map[string]interface{}{}
	} else {
		_env["props"] = map[string]interface{}(props.Copy())
	}

	_env["now"] = func() interface{} {
		return i.now().UnixMilli()
	}

	_env["cronNext"] = func(x, from interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		t := i.now()
		switch vv := export(from).(type) {
		case int64:
			t = time.UnixMilli(vv)
		case float64:
			t = time.UnixMilli(int64(vv))
		}
		return c.Next(t).UnixMilli()
	}

	_env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			i.log().Warn("goja.log can't marshal", "error", err)
		} else {
			i.log().Debug("goja.log", "x", string(js))
		}
		exe.Traces.Add(x)
		return x
	}

	o.Set("_", _env)

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	switch vv := v.Export().(type) {
	case nil:
	case map[string]interface{}:
		x, err := core.Canonicalize(vv)
		if err != nil {
			return nil, err
		}
		m, _ := x.(map[string]interface{})
		delta, err := toDelta(env, m)
		if err != nil {
			return nil, err
		}
		exe.Delta = delta
	default:
		return nil, fmt.Errorf("%#v (%T) isn't an object of updates", vv, vv)
	}

	return exe, nil
}

// toDelta converts the plain values, using the kinds in env where
// the names are known.
func toDelta(env symbols.Table, m map[string]interface{}) (symbols.Table, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	delta := symbols.NewTable()
	for _, name := range names {
		v, err := symbols.FromInterface(m[name])
		if err != nil {
			return nil, fmt.Errorf("update of %s: %w", name, err)
		}
		if was, have := env[name]; have {
			if v, err = v.Coerce(was.Kind()); err != nil {
				return nil, fmt.Errorf("update of %s: %w", name, err)
			}
		}
		delta.Put(name, v)
	}
	return delta, nil
}
