package core

import (
	"sort"
	"strings"

	"github.com/Comcast/ntta/symbols"
)

// State is a snapshot: the current location of every component and
// the values of all symbols.
//
// States are values.  Nothing modifies a State after it's made;
// Apply makes a new one.
type State struct {
	Locations map[string]string `json:"locations"`
	Symbols   symbols.Table     `json:"symbols"`
	External  symbols.Table     `json:"external,omitempty" yaml:",omitempty"`
}

// Copy makes a deep copy of the State.
func (s *State) Copy() *State {
	ls := make(map[string]string, len(s.Locations))
	for c, l := range s.Locations {
		ls[c] = l
	}
	return &State{
		Locations: ls,
		Symbols:   s.Symbols.Copy(),
		External:  s.External.Copy(),
	}
}

// Env returns the tables in lookup order: internal then external.
func (s *State) Env() []symbols.Table {
	return []symbols.Table{s.Symbols, s.External}
}

// Environment merges internal and external symbols into one new
// table.  Internal symbols win.
func (s *State) Environment() symbols.Table {
	return s.External.Copy().Merge(s.Symbols)
}

// Lookup finds a symbol in either table.
func (s *State) Lookup(name string) (symbols.Value, bool) {
	if v, have := s.Symbols[name]; have {
		return v, true
	}
	v, have := s.External[name]
	return v, have
}

// At returns the current location of the component.
func (s *State) At(component string) string {
	return s.Locations[component]
}

func (s *State) componentNames() []string {
	acc := make([]string, 0, len(s.Locations))
	for c := range s.Locations {
		acc = append(acc, c)
	}
	sort.Strings(acc)
	return acc
}

// Hash is a pure function of the locations and symbol values.  It
// never returns 0, which search bookkeeping reserves to mean "no
// predecessor".
//
// Components are taken in name order.  The first contributes the hash
// of its location alone; the others fold in their names.  Symbols
// contribute order-independently.
func (s *State) Hash() uint64 {
	var h uint64
	for i, c := range s.componentNames() {
		l := symbols.HashString(s.Locations[c])
		if 0 < i {
			l = symbols.Combine(symbols.HashString(c), l)
		}
		h += symbols.Mix(l)
	}
	h += s.Symbols.Hash()
	h += s.External.Hash()
	if h == 0 {
		h = 1
	}
	return h
}

// Equal compares structure, not hashes.
func (s *State) Equal(o *State) bool {
	if len(s.Locations) != len(o.Locations) {
		return false
	}
	for c, l := range s.Locations {
		if o.Locations[c] != l {
			return false
		}
	}
	return s.Symbols.Equal(o.Symbols) && s.External.Equal(o.External)
}

func (s *State) String() string {
	if s == nil {
		return "nil"
	}
	var b strings.Builder
	for i, c := range s.componentNames() {
		if 0 < i {
			b.WriteByte(' ')
		}
		b.WriteString(c)
		b.WriteByte('.')
		b.WriteString(s.Locations[c])
	}
	b.WriteByte(' ')
	b.WriteString(s.Symbols.String())
	if 0 < len(s.External) {
		b.WriteByte(' ')
		b.WriteString(s.External.String())
	}
	return b.String()
}

// StateChange is a transition's effect: new locations for some
// components and new values for some symbols.
type StateChange struct {
	Locations map[string]string `json:"locations,omitempty" yaml:",omitempty"`

	// Symbols is a delta.  Each name is written to the table that
	// declares it (internal first); undeclared names go to the
	// internal table.
	Symbols symbols.Table `json:"symbols,omitempty" yaml:",omitempty"`

	// Via names what caused the change ("component.edge" or
	// "tock").
	Via []string `json:"via,omitempty" yaml:",omitempty"`

	Tock bool `json:"tock,omitempty" yaml:",omitempty"`
}

// Empty reports whether the change would do nothing at all.
func (c *StateChange) Empty() bool {
	return c == nil || (len(c.Locations) == 0 && len(c.Symbols) == 0)
}

func (c *StateChange) String() string {
	if c == nil {
		return "nil"
	}
	return strings.Join(c.Via, ",")
}

// Apply returns a new State.  Neither the receiver nor the change is
// modified.
func (s *State) Apply(c *StateChange) *State {
	next := s.Copy()
	if c == nil {
		return next
	}
	for comp, l := range c.Locations {
		next.Locations[comp] = l
	}
	for name, v := range c.Symbols {
		switch {
		case next.Symbols.Has(name):
			next.Symbols[name] = v
		case next.External.Has(name):
			next.External[name] = v
		default:
			next.Symbols[name] = v
		}
	}
	return next
}
