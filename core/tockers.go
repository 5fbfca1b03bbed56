package core

import (
	"context"
	"errors"

	"github.com/Comcast/ntta/symbols"
)

var (
	// InterpreterNotFound occurs when there's an attempt to
	// compile a TockerSource that names an interpreter that
	// isn't in the given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used in TockerSource.Compile if
	// the given nil interpreters.
	DefaultInterpreters = make(map[string]Interpreter)
)

// Props are parameters that a TockerSource hands to its interpreter
// at each execution.
type Props map[string]interface{}

func (ps Props) Copy() Props {
	acc := make(Props, len(ps))
	for p, v := range ps {
		acc[p] = v
	}
	return acc
}

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, 4),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// Execution is the result of running tocker code: the symbol delta
// and whatever the code traced.
type Execution struct {
	Delta  symbols.Table
	Traces *Traces
}

func NewExecution(delta symbols.Table) *Execution {
	return &Execution{
		Delta:  delta,
		Traces: NewTraces(),
	}
}

// Interpreter can compile and execute tocker code.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code against the environment.  The result
	// of previous Compile() might be provided.
	Exec(ctx context.Context, env symbols.Table, props Props, code interface{}, compiled interface{}) (*Execution, error)
}

// Tocker produces the external updates of a tock step.
//
// The returned table is a delta: names that aren't mentioned keep
// their values.  A Tocker must not modify the environment.
type Tocker interface {
	Tock(ctx context.Context, env symbols.Table) (symbols.Table, error)
}

// BranchingTocker can offer several alternative deltas, each of which
// becomes its own tock successor.
type BranchingTocker interface {
	Tocker
	Tocks(ctx context.Context, env symbols.Table) ([]symbols.Table, error)
}

// FuncTocker wraps a Go function.
type FuncTocker struct {
	Name string
	F    func(context.Context, symbols.Table) (symbols.Table, error)
}

func (t *FuncTocker) Tock(ctx context.Context, env symbols.Table) (symbols.Table, error) {
	if t == nil || t.F == nil {
		return symbols.NewTable(), nil
	}
	return t.F(ctx, env)
}

func (t *FuncTocker) String() string {
	return t.Name
}

// TockerSource can be compiled to a Tocker.
type TockerSource struct {
	Name        string      `json:"name,omitempty" yaml:",omitempty"`
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`
	Props       Props       `json:"props,omitempty" yaml:",omitempty"`
}

// Copy makes a shallow copy.
func (s *TockerSource) Copy() *TockerSource {
	if s == nil {
		return nil
	}
	return &TockerSource{
		Name:        s.Name,
		Interpreter: s.Interpreter,
		Source:      s.Source,
		Props:       s.Props.Copy(),
	}
}

// Compile attempts to compile the TockerSource into a Tocker using
// the given interpreters, which defaults to DefaultInterpreters.
func (s *TockerSource) Compile(ctx context.Context, interpreters map[string]Interpreter) (Tocker, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[s.Interpreter]
	if !have {
		return nil, InterpreterNotFound
	}

	x, err := interpreter.Compile(ctx, s.Source)
	if err != nil {
		return nil, err
	}

	return &FuncTocker{
		Name: s.Name,
		F: func(ctx context.Context, env symbols.Table) (symbols.Table, error) {
			exe, err := interpreter.Exec(ctx, env, s.Props, s.Source, x)
			if err != nil {
				return nil, err
			}
			if exe == nil || exe.Delta == nil {
				return symbols.NewTable(), nil
			}
			return exe.Delta, nil
		},
	}, nil
}
