package util

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is below slog.LevelDebug.  Guards that mention undefined
// symbols and inconclusive satisfiability checks log at this level.
const LevelTrace = slog.Level(-8)

// Verbosity maps a 0-6 verbosity to a level.  0 logs only errors;
// 6 logs everything including traces.
func Verbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v <= 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	case v <= 5:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// NewLogger makes a logger at the given level.  The format is "text"
// or "json".
func NewLogger(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, is := a.Value.Any().(slog.Level); is && l <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Discard is a logger that writes nothing.
var Discard = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// Trace logs at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// StringsFlag is a repeatable string flag.
type StringsFlag []string

func (f *StringsFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *StringsFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
