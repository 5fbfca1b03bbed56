package symbols

import (
	"sort"
	"strings"
)

// UndefinedSymbol occurs when a lookup names an identifier that isn't
// in the table.
type UndefinedSymbol struct {
	Name string
}

func (e *UndefinedSymbol) Error() string {
	return `undefined symbol "` + e.Name + `"`
}

// Table maps identifiers to values.
//
// A Table is an owned value: operations that produce a new table
// (Copy, Diff, Extend) never share storage with their inputs.
// Iteration order of the underlying map is irrelevant; anything
// order-sensitive (String, Keys, Hash) is defined independently of it.
type Table map[string]Value

func NewTable() Table {
	return make(Table, 8)
}

// Lookup returns the value for the identifier or an *UndefinedSymbol.
func (t Table) Lookup(name string) (Value, error) {
	v, have := t[name]
	if !have {
		return Value{}, &UndefinedSymbol{Name: name}
	}
	return v, nil
}

// Has reports whether the identifier is defined.
func (t Table) Has(name string) bool {
	_, have := t[name]
	return have
}

// Put sets a single entry in place and returns the receiver, which
// makes it handy for accumulating a table in a scope.
func (t Table) Put(name string, v Value) Table {
	t[name] = v
	return t
}

// Merge writes every entry of other into the receiver (in place),
// overwriting on collision, and returns the receiver.
func (t Table) Merge(other Table) Table {
	for k, v := range other {
		t[k] = v
	}
	return t
}

// Extend returns a copy with the additional entry.
func (t Table) Extend(name string, v Value) Table {
	return t.Copy().Put(name, v)
}

// Overlap returns the sorted identifiers defined in both tables.  The
// tables aren't modified.
func (t Table) Overlap(other Table) []string {
	small, big := t, other
	if len(big) < len(small) {
		small, big = big, small
	}
	var acc []string
	for k := range small {
		if _, have := big[k]; have {
			acc = append(acc, k)
		}
	}
	sort.Strings(acc)
	return acc
}

// Diff returns the entries of other that are missing from or
// different in the receiver.
func (t Table) Diff(other Table) Table {
	acc := make(Table)
	for k, v := range other {
		if was, have := t[k]; !have || !was.Equal(v) {
			acc[k] = v
		}
	}
	return acc
}

func (t Table) Copy() Table {
	acc := make(Table, len(t))
	for k, v := range t {
		acc[k] = v
	}
	return acc
}

// Keys returns the sorted identifiers.
func (t Table) Keys() []string {
	acc := make([]string, 0, len(t))
	for k := range t {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		w, have := other[k]
		if !have || !v.Equal(w) {
			return false
		}
	}
	return true
}

// String renders the table with sorted keys.
func (t Table) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range t.Keys() {
		if 0 < i {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(t[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

// FromMap converts plain values (see FromInterface).
func FromMap(m map[string]interface{}) (Table, error) {
	acc := make(Table, len(m))
	for k, x := range m {
		v, err := FromInterface(x)
		if err != nil {
			return nil, err
		}
		acc[k] = v
	}
	return acc, nil
}

// Map returns plain values, which is what scripts and JSON encoders
// want.
func (t Table) Map() map[string]interface{} {
	acc := make(map[string]interface{}, len(t))
	for k, v := range t {
		acc[k] = v.Interface()
	}
	return acc
}
