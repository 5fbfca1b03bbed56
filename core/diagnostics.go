package core

import (
	"strings"
)

// Severity of a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic describes a problem with a network or a document that
// describes one.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`

	// Elements names what the diagnostic is about, such as a
	// component, a location, or a file.
	Elements []string `json:"elements,omitempty" yaml:",omitempty"`
}

func (d *Diagnostic) String() string {
	s := d.Severity.String() + ": " + d.Title
	if d.Message != "" {
		s += ": " + d.Message
	}
	if 0 < len(d.Elements) {
		s += " [" + strings.Join(d.Elements, ", ") + "]"
	}
	return s
}

// Diagnostics is an error if it contains any errors.
type Diagnostics []*Diagnostic

func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the errors.
func (ds Diagnostics) Errors() Diagnostics {
	var acc Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityError {
			acc = append(acc, d)
		}
	}
	return acc
}

func (ds Diagnostics) Error() string {
	ss := make([]string, 0, len(ds))
	for _, d := range ds {
		ss = append(ss, d.String())
	}
	return strings.Join(ss, "; ")
}

// Add appends a diagnostic.
func (ds *Diagnostics) Add(sev Severity, title, msg string, elements ...string) {
	*ds = append(*ds, &Diagnostic{
		Severity: sev,
		Title:    title,
		Message:  msg,
		Elements: elements,
	})
}
