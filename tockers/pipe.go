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
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Comcast/ntta/symbols"
)

// PipeTocker writes the environment as a line of JSON and reads a
// line holding a JSON object of updates.
//
// The usual use is a pair of named pipes shared with another process.
type PipeTocker struct {
	Name string

	sync.Mutex
	w io.Writer
	r *bufio.Reader

	open   func() error
	closer []io.Closer
}

// NewPipeTocker takes an argument of the form "INPUT;OUTPUT", which
// names the file to read replies from and the file to write requests
// to.  The files are opened on the first Tock.
func NewPipeTocker(arg string) (*PipeTocker, error) {
	in, out, have := strings.Cut(arg, ";")
	if !have {
		return nil, fmt.Errorf(`pipe tocker wants "input;output", not %q`, arg)
	}
	in, out = strings.TrimSpace(in), strings.TrimSpace(out)
	if in == "" || out == "" {
		return nil, fmt.Errorf(`pipe tocker wants "input;output", not %q`, arg)
	}

	t := &PipeTocker{
		Name: "pipe(" + arg + ")",
	}
	t.open = func() error {
		// Open the output first so that a peer that opens its
		// input first doesn't deadlock with us.
		w, err := os.OpenFile(out, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		r, err := os.Open(in)
		if err != nil {
			w.Close()
			return err
		}
		t.w = w
		t.r = bufio.NewReader(r)
		t.closer = []io.Closer{w, r}
		return nil
	}

	return t, nil
}

// NewPipeTockerFrom uses the given reader and writer.
func NewPipeTockerFrom(name string, r io.Reader, w io.Writer) *PipeTocker {
	return &PipeTocker{
		Name: name,
		w:    w,
		r:    bufio.NewReader(r),
	}
}

func (t *PipeTocker) String() string {
	return t.Name
}

func (t *PipeTocker) Tock(ctx context.Context, env symbols.Table) (symbols.Table, error) {
	t.Lock()
	defer t.Unlock()

	if t.w == nil {
		if t.open == nil {
			return nil, fmt.Errorf("%s has no pipes", t.Name)
		}
		if err := t.open(); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
	}

	js, err := EncodeEnv(env)
	if err != nil {
		return nil, err
	}
	if _, err = t.w.Write(append(js, '\n')); err != nil {
		return nil, fmt.Errorf("%s write: %w", t.Name, err)
	}

	line, err := t.r.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, fmt.Errorf("%s read: %w", t.Name, err)
	}

	return DecodeDelta(env, line)
}

// Close closes the files that Tock opened.
func (t *PipeTocker) Close() error {
	t.Lock()
	defer t.Unlock()
	var err error
	for _, c := range t.closer {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	t.closer = nil
	if t.open != nil {
		t.w, t.r = nil, nil
	}
	return err
}
