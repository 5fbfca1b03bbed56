// Package tockers has the built-in tockers: one that asks the sat
// checker which external values would matter, one that talks to
// another process over a pair of pipes, and one that talks to a
// remote environment model over MQTT or a websocket.
package tockers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Comcast/ntta/symbols"
)

// EncodeEnv renders the environment as a JSON object.
func EncodeEnv(env symbols.Table) ([]byte, error) {
	return json.Marshal(env.Map())
}

// DecodeDelta parses a JSON object of updates.  Values are converted
// to the kinds of the symbols they update.  An empty or null reply is
// an empty delta.
func DecodeDelta(env symbols.Table, bs []byte) (symbols.Table, error) {
	var m map[string]interface{}
	if bs = bytes.TrimSpace(bs); len(bs) == 0 {
		return symbols.NewTable(), nil
	}
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, fmt.Errorf("bad tock reply %q: %w", bs, err)
	}

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
