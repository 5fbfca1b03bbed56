package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Comcast/ntta/expr"
	"github.com/Comcast/ntta/symbols"
)

// Network is a network of tick-tock automata: components that run in
// parallel over shared symbols.
//
// A Network gives structure only.  The current location of each
// component and the current symbol values make up a State.
//
// A Network must be Compiled before use.
type Network struct {
	// Name is the generic name for this network.
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Doc is general documentation about the network.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Symbols are the internal symbols with their initial
	// values.
	Symbols symbols.Table `json:"symbols,omitempty" yaml:",omitempty"`

	// External symbols model the environment.  Tockers update
	// them.
	External symbols.Table `json:"external,omitempty" yaml:",omitempty"`

	Components map[string]*Component `json:"components,omitempty" yaml:",omitempty"`

	// TockerSources, if given, are compiled into tockers that run
	// after the Tockers.
	TockerSources []*TockerSource `json:"tockers,omitempty" yaml:"tockers,omitempty"`

	// Tockers are registered by the caller (see package plugins).
	Tockers []Tocker `json:"-" yaml:"-"`

	scripted []Tocker
	compiled bool
}

// Component is a single automaton.
type Component struct {
	// Name is set by Network.Compile.
	Name string `json:"-" yaml:"-"`

	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Initial is the name of the initial location.
	Initial string `json:"initial" yaml:"initial"`

	Locations map[string]*Location `json:"locations" yaml:"locations"`

	Edges []*Edge `json:"edges,omitempty" yaml:",omitempty"`

	// out maps a location name to its outgoing edges.
	out map[string][]*Edge
}

// Location is a vertex of a Component.
type Location struct {
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Urgent locations must take a tick before any tock happens.
	Urgent bool `json:"urgent,omitempty" yaml:",omitempty"`
}

// Edge is a guarded, updating transition.
type Edge struct {
	// Id names the edge in traces and diagnostics.  Network.Compile
	// makes one up if it's empty.
	Id string `json:"id,omitempty" yaml:",omitempty"`

	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// GuardSource is compiled to the Guard.  Empty means true.
	GuardSource string `json:"guard,omitempty" yaml:"guard,omitempty"`

	Guard *expr.Expr `json:"-" yaml:"-"`

	// UpdateSource is compiled to the Updates.
	UpdateSource string `json:"update,omitempty" yaml:"update,omitempty"`

	Updates expr.Updates `json:"-" yaml:"-"`

	// Sequential makes each update see the effects of the
	// previous ones.  Normally updates are simultaneous.
	Sequential bool `json:"sequential,omitempty" yaml:",omitempty"`
}

// Apply computes the symbol delta of the edge's updates.
func (e *Edge) Apply(envs ...symbols.Table) (symbols.Table, error) {
	if e.Sequential {
		return e.Updates.ApplySequential(envs...)
	}
	return e.Updates.Apply(envs...)
}

// Out returns the edges leaving the location.
func (c *Component) Out(location string) []*Edge {
	return c.out[location]
}

// LocationNames returns the sorted location names.
func (c *Component) LocationNames() []string {
	acc := make([]string, 0, len(c.Locations))
	for name := range c.Locations {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// ComponentNames returns the sorted component names.
func (n *Network) ComponentNames() []string {
	acc := make([]string, 0, len(n.Components))
	for name := range n.Components {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Component returns the named component or an *UnknownComponent.
func (n *Network) Component(name string) (*Component, error) {
	c, have := n.Components[name]
	if !have {
		return nil, &UnknownComponent{Name: name}
	}
	return c, nil
}

// AllTockers returns the registered tockers followed by those compiled
// from TockerSources.
func (n *Network) AllTockers() []Tocker {
	acc := make([]Tocker, 0, len(n.Tockers)+len(n.scripted))
	acc = append(acc, n.Tockers...)
	return append(acc, n.scripted...)
}

// Lookup finds the declared initial value of a symbol.  Internal
// symbols shadow external ones.
func (n *Network) Lookup(name string) (symbols.Value, bool) {
	if v, have := n.Symbols[name]; have {
		return v, true
	}
	v, have := n.External[name]
	return v, have
}

func (n *Network) Compiled() bool {
	return n.compiled
}

// Compile checks the structure, compiles guards and updates, and
// compiles TockerSources.  Identifiers must be declared in Symbols or
// External.
//
// All problems are returned together as Diagnostics.
func (n *Network) Compile(ctx context.Context, cfg *Config, force bool) error {
	if n.compiled && !force {
		return nil
	}

	if n.Symbols == nil {
		n.Symbols = symbols.NewTable()
	}
	if n.External == nil {
		n.External = symbols.NewTable()
	}
	if n.Components == nil {
		n.Components = make(map[string]*Component)
	}

	var ds Diagnostics

	if overlap := n.Symbols.Overlap(n.External); 0 < len(overlap) {
		cfg.Warn(WarnOverlapIdem, "internal symbols shadow external symbols", "symbols", overlap)
	}

	if len(n.Components) == 0 {
		ds.Add(SeverityError, "empty network", "no components", n.Name)
	}

	for _, name := range n.ComponentNames() {
		c := n.Components[name]
		if c == nil {
			ds.Add(SeverityError, "empty component", "", name)
			continue
		}
		c.Name = name
		compileComponent(c, n.Symbols, n.External, &ds)
	}

	n.scripted = n.scripted[:0]
	for i, src := range n.TockerSources {
		t, err := src.Compile(ctx, cfg.interpreters())
		if err != nil {
			name := src.Name
			if name == "" {
				name = fmt.Sprintf("tocker %d", i)
			}
			ds.Add(SeverityError, "tocker compilation failed", err.Error(), name)
			continue
		}
		n.scripted = append(n.scripted, t)
	}

	if ds.HasErrors() {
		return ds
	}
	n.compiled = true
	return nil
}

func compileComponent(c *Component, internal, external symbols.Table, ds *Diagnostics) {
	if c.Locations == nil {
		c.Locations = make(map[string]*Location)
	}
	for name, l := range c.Locations {
		if l == nil {
			c.Locations[name] = &Location{}
		}
	}

	if c.Initial == "" && len(c.Locations) == 1 {
		for name := range c.Locations {
			c.Initial = name
		}
	}
	if _, have := c.Locations[c.Initial]; !have {
		err := &UnknownLocation{Component: c.Name, Location: c.Initial}
		ds.Add(SeverityError, "bad initial location", err.Error(), c.Name)
	}

	c.out = make(map[string][]*Edge, len(c.Locations))
	ids := make(map[string]bool, len(c.Edges))
	for i, e := range c.Edges {
		if e == nil {
			ds.Add(SeverityError, "empty edge", fmt.Sprintf("edge %d", i), c.Name)
			continue
		}
		if e.Id == "" {
			e.Id = fmt.Sprintf("%s->%s#%d", e.Source, e.Target, i)
		}
		if ids[e.Id] {
			ds.Add(SeverityError, "duplicate edge id", e.Id, c.Name)
		}
		ids[e.Id] = true

		for _, l := range []string{e.Source, e.Target} {
			if _, have := c.Locations[l]; !have {
				err := &EdgeError{Component: c.Name, Edge: e.Id, Err: &UnknownLocation{Component: c.Name, Location: l}}
				ds.Add(SeverityError, "bad edge", err.Error(), c.Name, e.Id)
			}
		}

		g, err := expr.Compile(e.GuardSource, internal, external)
		if err != nil {
			err = &EdgeError{Component: c.Name, Edge: e.Id, Err: err}
			ds.Add(SeverityError, "bad guard", err.Error(), c.Name, e.Id)
		} else {
			e.Guard = g
		}

		us, err := expr.CompileUpdates(e.UpdateSource, internal, external)
		if err != nil {
			err = &EdgeError{Component: c.Name, Edge: e.Id, Err: err}
			ds.Add(SeverityError, "bad update", err.Error(), c.Name, e.Id)
		} else {
			e.Updates = us
		}

		c.out[e.Source] = append(c.out[e.Source], e)
	}
}

// InitialState makes the state with every component at its initial
// location and the symbols at their initial values.
func (n *Network) InitialState() *State {
	st := &State{
		Locations: make(map[string]string, len(n.Components)),
		Symbols:   n.Symbols.Copy(),
		External:  n.External.Copy(),
	}
	for name, c := range n.Components {
		st.Locations[name] = c.Initial
	}
	return st
}

// Copy makes a deep copy of the structure.  The copy must be
// compiled.
func (n *Network) Copy() *Network {
	cs := make(map[string]*Component, len(n.Components))
	for name, c := range n.Components {
		cs[name] = c.Copy()
	}
	srcs := make([]*TockerSource, len(n.TockerSources))
	for i, s := range n.TockerSources {
		srcs[i] = s.Copy()
	}
	return &Network{
		Name:          n.Name,
		Doc:           n.Doc,
		Symbols:       n.Symbols.Copy(),
		External:      n.External.Copy(),
		Components:    cs,
		TockerSources: srcs,
		Tockers:       append([]Tocker(nil), n.Tockers...),
	}
}

// Copy doesn't copy compiled guards and updates.
func (c *Component) Copy() *Component {
	ls := make(map[string]*Location, len(c.Locations))
	for name, l := range c.Locations {
		if l != nil {
			cp := *l
			l = &cp
		}
		ls[name] = l
	}
	es := make([]*Edge, len(c.Edges))
	for i, e := range c.Edges {
		if e != nil {
			es[i] = &Edge{
				Id:           e.Id,
				Source:       e.Source,
				Target:       e.Target,
				GuardSource:  e.GuardSource,
				UpdateSource: e.UpdateSource,
				Sequential:   e.Sequential,
			}
		}
	}
	return &Component{
		Doc:       c.Doc,
		Initial:   c.Initial,
		Locations: ls,
		Edges:     es,
	}
}

// AsDiagnostics extracts Diagnostics from an error returned by
// Compile.
func AsDiagnostics(err error) (Diagnostics, bool) {
	var ds Diagnostics
	if errors.As(err, &ds) {
		return ds, true
	}
	return nil, false
}
