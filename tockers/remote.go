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
	"context"
	"fmt"
	"sync"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
)

// Couplings carry a request to a remote environment model and bring
// back its reply.
type Couplings interface {
	// Start establishes the session.
	Start(ctx context.Context) error

	// Exchange sends a request and waits for the reply.
	Exchange(ctx context.Context, request []byte) ([]byte, error)

	// Stop terminates the session.
	Stop(ctx context.Context) error
}

// RemoteTocker sends the environment as JSON over its Couplings and
// takes the reply, a JSON object, as the delta.
//
// The Couplings are started on the first Tock.
type RemoteTocker struct {
	Name      string
	Couplings Couplings
	Cfg       *core.Config

	sync.Mutex
	started bool
}

func NewRemoteTocker(name string, c Couplings, cfg *core.Config) *RemoteTocker {
	return &RemoteTocker{
		Name:      name,
		Couplings: c,
		Cfg:       cfg,
	}
}

func (t *RemoteTocker) String() string {
	return t.Name
}

func (t *RemoteTocker) Tock(ctx context.Context, env symbols.Table) (symbols.Table, error) {
	t.Lock()
	defer t.Unlock()

	if !t.started {
		if err := t.Couplings.Start(ctx); err != nil {
			return nil, fmt.Errorf("%s start: %w", t.Name, err)
		}
		t.started = true
	}

	req, err := EncodeEnv(env)
	if err != nil {
		return nil, err
	}

	t.Cfg.Trace("remote tock request", "tocker", t.Name, "env", string(req))

	resp, err := t.Couplings.Exchange(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s exchange: %w", t.Name, err)
	}

	t.Cfg.Trace("remote tock reply", "tocker", t.Name, "delta", string(resp))

	return DecodeDelta(env, resp)
}

// Close stops the Couplings if they were started.
func (t *RemoteTocker) Close(ctx context.Context) error {
	t.Lock()
	defer t.Unlock()
	if !t.started {
		return nil
	}
	t.started = false
	return t.Couplings.Stop(ctx)
}
