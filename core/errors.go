package core

// These errors are user errors, not internal errors.

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkNotCompiled occurs when a Network is used before it has been
// Compile()ed.
type NetworkNotCompiled struct {
	Network *Network
}

func (e *NetworkNotCompiled) Error() string {
	return `network "` + e.Network.Name + `" not compiled`
}

// UnknownLocation occurs when an edge or an initial location names a
// location that the component doesn't have.
type UnknownLocation struct {
	Component string
	Location  string
}

func (e *UnknownLocation) Error() string {
	return `location "` + e.Location + `" not found in component "` + e.Component + `"`
}

// UnknownComponent occurs when a component is named that isn't in the
// network.
type UnknownComponent struct {
	Name string
}

func (e *UnknownComponent) Error() string {
	return `component "` + e.Name + `" not found`
}

// EdgeError wraps an error that belongs to a particular edge.
type EdgeError struct {
	Component string
	Edge      string
	Err       error
}

func (e *EdgeError) Error() string {
	return `edge "` + e.Edge + `" in component "` + e.Component + `": ` + e.Err.Error()
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}

// NondeterminismError reports an ambiguous choice when ambiguity is
// fatal.
//
// Either more than one edge is enabled at a location (Edges is set)
// or more than one successor state is waiting to be chosen
// (Candidates is set).
type NondeterminismError struct {
	Component  string
	Location   string
	Edges      []string
	Candidates int

	// State describes the state at which the choice arose.
	State string
}

func (e *NondeterminismError) Error() string {
	if 0 < len(e.Edges) {
		return fmt.Sprintf(`non-deterministic choice in component "%s" at location "%s": edges %s are enabled in state %s`,
			e.Component, e.Location, strings.Join(e.Edges, ", "), e.State)
	}
	return fmt.Sprintf("non-deterministic choice among %d waiting states after state %s", e.Candidates, e.State)
}

// TooManyTockers occurs when combining branching tockers would be
// unreasonable.
var TooManyTockers = errors.New("too many tocker alternatives")
