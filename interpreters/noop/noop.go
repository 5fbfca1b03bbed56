package noop

import (
	"context"
	"log/slog"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/symbols"
	"github.com/Comcast/ntta/util"
)

// Interpreter is a core.Interpreter whose tockers change nothing.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool

	Logger *slog.Logger
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) warn(msg string) {
	if i.Silent {
		return
	}
	l := i.Logger
	if l == nil {
		l = util.Discard
	}
	l.Warn(msg)
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	i.warn("using noop interpreter for compilation")
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, env symbols.Table, props core.Props, code interface{}, compiled interface{}) (*core.Execution, error) {
	i.warn("using noop interpreter for execution")
	return core.NewExecution(symbols.NewTable()), nil
}
