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

package tockers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
	. "github.com/Comcast/ntta/util/testutil"

	"github.com/gorilla/websocket"
)

func TestInterestingTocker(t *testing.T) {
	ctx := context.Background()
	n, err := core.DoorNetwork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &core.Config{Logger: Logger(t)}
	it := NewInterestingTocker(n, cfg)

	st := n.InitialState()
	ds, err := it.Tocks(ctx, st.Environment())
	if err != nil {
		t.Fatal(err)
	}

	opens := false
	for _, d := range ds {
		v, have := d["y"]
		if !have {
			t.Fatalf("alternative %s doesn't set y", d)
		}
		if i, err := v.AsInt(); err == nil && 0 < i {
			opens = true
		}
	}
	if !opens {
		t.Fatalf("no alternative opens the door: %s", JS(ds))
	}

	t.Run("successors", func(t *testing.T) {
		n.Tockers = []core.Tocker{it}
		changes, err := n.Tocks(ctx, cfg, st)
		if err != nil {
			t.Fatal(err)
		}
		if len(changes) == 0 {
			t.Fatal("expected a tock successor")
		}
		next := st.Apply(changes[0])
		enabled, err := n.Enabled(cfg, next, "A")
		if err != nil {
			t.Fatal(err)
		}
		if len(enabled) != 1 {
			t.Fatalf("door still shut after %s", changes[0])
		}
	})

	t.Run("internal", func(t *testing.T) {
		n, err := core.CountdownNetwork(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		ds, err := NewInterestingTocker(n, nil).Tocks(ctx, n.InitialState().Environment())
		if err != nil {
			t.Fatal(err)
		}
		if len(ds) != 0 {
			t.Fatalf("internal guards aren't interesting: %s", JS(ds))
		}
	})
}

func TestDecodeDelta(t *testing.T) {
	env := symbols.NewTable().
		Put("r", symbols.RealVal(1.5)).
		Put("t", symbols.TimerVal(0))

	d, err := DecodeDelta(env, []byte(`{"r":2,"t":100,"z":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	if k := d["r"].Kind(); k != symbols.Real {
		t.Fatalf("r is a %s", k)
	}
	if k := d["t"].Kind(); k != symbols.Timer {
		t.Fatalf("t is a %s", k)
	}
	if s, _ := d["z"].AsString(); s != "hi" {
		t.Fatal(d)
	}

	if d, err = DecodeDelta(env, []byte("  \n")); err != nil || len(d) != 0 {
		t.Fatal(d, err)
	}

	if _, err = DecodeDelta(env, []byte(`{"r":"one"}`)); err == nil {
		t.Fatal("expected a conversion error")
	}
	if _, err = DecodeDelta(env, []byte(`[1]`)); err == nil {
		t.Fatal("expected a parse error")
	}
}

type fakeCouplings struct {
	starts, stops int
	requests      []string
	reply         string
	err           error
}

func (c *fakeCouplings) Start(ctx context.Context) error {
	c.starts++
	return nil
}

func (c *fakeCouplings) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	c.requests = append(c.requests, string(request))
	return []byte(c.reply), c.err
}

func (c *fakeCouplings) Stop(ctx context.Context) error {
	c.stops++
	return nil
}

func TestRemoteTocker(t *testing.T) {
	var (
		ctx = context.Background()
		c   = &fakeCouplings{reply: `{"y":3}`}
		rt  = NewRemoteTocker("fake", c, &core.Config{Logger: Logger(t)})
		env = symbols.NewTable().Put("y", symbols.IntVal(0))
	)

	for i := 0; i < 2; i++ {
		d, err := rt.Tock(ctx, env)
		if err != nil {
			t.Fatal(err)
		}
		if !d["y"].Equal(symbols.IntVal(3)) {
			t.Fatal(d)
		}
	}
	if c.starts != 1 {
		t.Fatalf("started %d times", c.starts)
	}
	if c.requests[0] != `{"y":0}` {
		t.Fatal(c.requests[0])
	}

	if err := rt.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if c.stops != 1 {
		t.Fatal(c.stops)
	}

	c.err = errors.New("broken")
	if _, err := rt.Tock(ctx, env); err == nil || !errors.Is(err, c.err) {
		t.Fatal(err)
	}
}

func TestWSCouplings(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, bs, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := `{"y":7}`
			if !strings.Contains(string(bs), `"y"`) {
				reply = `{}`
			}
			if err = conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	rt := NewRemoteTocker("ws", NewWSCouplings(u), nil)
	defer rt.Close(ctx)

	d, err := rt.Tock(ctx, symbols.NewTable().Put("y", symbols.IntVal(1)))
	if err != nil {
		t.Fatal(err)
	}
	if !d["y"].Equal(symbols.IntVal(7)) {
		t.Fatal(d)
	}
}

func TestWSCouplingsNotStarted(t *testing.T) {
	if _, err := NewWSCouplings("ws://localhost:0").Exchange(context.Background(), []byte("{}")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestPipeTocker(t *testing.T) {
	var (
		reqR, reqW   = io.Pipe()
		respR, respW = io.Pipe()
		pt           = NewPipeTockerFrom("test", respR, reqW)
		heard        = make(chan string, 1)
	)

	go func() {
		line, _ := bufio.NewReader(reqR).ReadString('\n')
		heard <- line
		io.WriteString(respW, `{"y":5}`+"\n")
	}()

	d, err := pt.Tock(context.Background(), symbols.NewTable().Put("y", symbols.IntVal(0)))
	if err != nil {
		t.Fatal(err)
	}
	if !d["y"].Equal(symbols.IntVal(5)) {
		t.Fatal(d)
	}
	if line := <-heard; line != `{"y":0}`+"\n" {
		t.Fatalf("peer heard %q", line)
	}
}

func TestNewPipeTocker(t *testing.T) {
	for _, arg := range []string{"", "in", "in;", ";out"} {
		if _, err := NewPipeTocker(arg); err == nil {
			t.Fatalf("%q should be rejected", arg)
		}
	}
	pt, err := NewPipeTocker("in;out")
	if err != nil {
		t.Fatal(err)
	}
	if pt.String() != "pipe(in;out)" {
		t.Fatal(pt.String())
	}
}

func TestParseTopic(t *testing.T) {
	for _, tc := range []struct {
		in    string
		topic string
		qos   byte
	}{
		{"env/reply", "env/reply", 0},
		{"env/reply:1", "env/reply", 1},
		{"env/reply:2", "env/reply", 2},
	} {
		t.Run(tc.in, func(t *testing.T) {
			topic, qos := parseTopic(tc.in)
			if topic != tc.topic || qos != tc.qos {
				t.Fatalf("%s %d", topic, qos)
			}
		})
	}
}
