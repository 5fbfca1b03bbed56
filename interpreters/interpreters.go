package interpreters

import (
	"log/slog"

	"github.com/Comcast/ntta/core"
	"github.com/Comcast/ntta/interpreters/goja"
	"github.com/Comcast/ntta/interpreters/noop"
)

// Standard returns the interpreters that network documents can name.
func Standard(logger *slog.Logger) map[string]core.Interpreter {
	g := goja.NewInterpreter()
	g.Logger = logger

	return map[string]core.Interpreter{
		"goja":       g,
		"ecmascript": g,
		"noop":       &noop.Interpreter{Logger: logger},
	}
}
