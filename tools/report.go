package tools

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Comcast/ntta/verifier"

	md "github.com/russross/blackfriday/v2"
)

// Report gathers what RenderReportHTML shows.  Every part is
// optional.
type Report struct {
	Run     string
	Network string
	At      time.Time

	Results   *verifier.Results
	Deadlocks []*verifier.DeadlockReport
	Analysis  *NetworkAnalysis
}

func verdict(r *verifier.QueryResult) string {
	switch {
	case r.Unsupported:
		return "unsupported"
	case r.Error != "":
		return "error"
	case !r.Answered:
		return "unknown"
	case r.Satisfied:
		return "yes"
	default:
		return "no"
	}
}

func cell(s string) string {
	return strings.Replace(s, "|", `\|`, -1)
}

// Markdown renders the report as markdown.
func (r *Report) Markdown() []byte {
	var b bytes.Buffer
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	title := r.Network
	if title == "" {
		title = "network"
	}
	f("# Verification of %s", title)
	f("")
	if r.Run != "" {
		f("Run `%s`", r.Run)
	}
	if !r.At.IsZero() {
		f("at %s", r.At.UTC().Format(time.RFC3339))
	}
	f("")

	if res := r.Results; res != nil {
		f("## Queries")
		f("")
		f("The search was **%s** after exploring %d states in %s.", res.Outcome, res.Explored, res.Elapsed)
		f("")
		f("| Query | Answer | Trace |")
		f("|---|---|---|")
		for _, q := range res.Queries {
			f("| `%s` | %s | %d |", cell(q.Text), verdict(q), len(q.Witness))
		}
		f("")
		for _, q := range res.Queries {
			if len(q.Witness) == 0 {
				if q.TraceError != "" {
					f("Trace for `%s` is missing: %s", cell(q.Text), q.TraceError)
					f("")
				}
				continue
			}
			f("### Trace for `%s`", q.Text)
			f("")
			for i, st := range q.Witness {
				via := ""
				if i < len(q.Via) {
					via = q.Via[i]
				}
				f("%d. `%s` %s", i+1, via, st)
			}
			f("")
		}
	}

	if r.Deadlocks != nil {
		f("## Deadlocks")
		f("")
		if len(r.Deadlocks) == 0 {
			f("No possible deadlocks.")
		}
		for _, d := range r.Deadlocks {
			f("- %s", d)
		}
		f("")
	}

	if a := r.Analysis; a != nil {
		f("## Structure")
		f("")
		f("| Component | Locations | Edges | Terminal | Unreachable | Urgent |")
		f("|---|---|---|---|---|---|")
		for _, name := range keys(a.Components) {
			c := a.Components[name]
			f("| %s | %d | %d | %s | %s | %s |", name, c.Locations, c.Edges,
				strings.Join(c.Terminal, ", "),
				strings.Join(c.Unreachable, ", "),
				strings.Join(c.Urgent, ", "))
		}
		f("")
		if 0 < len(a.Interesting) {
			f("Interesting external symbols: %s", strings.Join(a.Interesting, ", "))
			f("")
		}
		for _, e := range a.Errors {
			f("- **error**: %s", e)
		}
	}

	return b.Bytes()
}

func keys(m map[string]*ComponentAnalysis) []string {
	acc := make(map[string]bool, len(m))
	for k := range m {
		acc[k] = true
	}
	return keysToStringSlice(acc)
}

// RenderReportHTML writes the report as an HTML page.
func RenderReportHTML(r *Report, out io.Writer, cssFiles []string) error {
	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, htmlEscape(r.Network))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, "  </head>\n  <body>\n")

	if _, err := out.Write(md.Run(r.Markdown(), md.WithExtensions(md.CommonExtensions))); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "  </body>\n</html>\n")
	return err
}
