package core

import (
	"context"

	"github.com/Comcast/ntta/symbols"
)

// CountdownNetwork makes an example Network that's useful to have
// around.
//
// One component "A" moves from L0 to L1 while x is positive,
// decrementing x, and returns to L0 unconditionally.
func CountdownNetwork(ctx context.Context, x int64) (*Network, error) {
	n := &Network{
		Name:    "countdown",
		Symbols: symbols.NewTable().Put("x", symbols.IntVal(x)),
		Components: map[string]*Component{
			"A": {
				Initial: "L0",
				Locations: map[string]*Location{
					"L0": {},
					"L1": {},
				},
				Edges: []*Edge{
					{
						Id:           "dec",
						Source:       "L0",
						Target:       "L1",
						GuardSource:  "x > 0",
						UpdateSource: "x := x - 1",
					},
					{
						Id:     "back",
						Source: "L1",
						Target: "L0",
					},
				},
			},
		},
	}
	if err := n.Compile(ctx, nil, true); err != nil {
		return nil, err
	}
	return n, nil
}

// DoorNetwork makes an example Network with an external symbol.
//
// Component "A" opens (L0 to L1) once the external "y" is positive.
// The caller supplies whatever tockers drive "y".
func DoorNetwork(ctx context.Context, tockers ...Tocker) (*Network, error) {
	n := &Network{
		Name:     "door",
		External: symbols.NewTable().Put("y", symbols.IntVal(0)),
		Components: map[string]*Component{
			"A": {
				Initial: "L0",
				Locations: map[string]*Location{
					"L0": {},
					"L1": {},
				},
				Edges: []*Edge{
					{
						Id:          "open",
						Source:      "L0",
						Target:      "L1",
						GuardSource: "y > 0",
					},
				},
			},
		},
		Tockers: tockers,
	}
	if err := n.Compile(ctx, nil, true); err != nil {
		return nil, err
	}
	return n, nil
}

// Incrementer is a Tocker that adds one to an integer symbol.
func Incrementer(name string) Tocker {
	return &FuncTocker{
		Name: "inc(" + name + ")",
		F: func(ctx context.Context, env symbols.Table) (symbols.Table, error) {
			v, err := env.Lookup(name)
			if err != nil {
				return nil, err
			}
			i, err := v.AsInt()
			if err != nil {
				return nil, err
			}
			return symbols.NewTable().Put(name, symbols.IntVal(i+1)), nil
		},
	}
}
