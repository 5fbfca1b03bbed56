package expr

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
)

// SyntaxError occurs when an expression doesn't parse.
type SyntaxError struct {
	Source string
	Diags  hcl.Diagnostics
}

func (e *SyntaxError) Error() string {
	msg := "syntax error"
	if 0 < len(e.Diags) {
		msg += ": " + e.Diags[0].Summary
		if d := e.Diags[0].Detail; d != "" {
			msg += " (" + d + ")"
		}
	}
	return msg + " in `" + e.Source + "`"
}

// UnknownIdentifier occurs at compile time when an expression
// references a name that the compilation context doesn't define.
type UnknownIdentifier struct {
	Name   string
	Source string
}

func (e *UnknownIdentifier) Error() string {
	return `unknown identifier "` + e.Name + "\" in `" + e.Source + "`"
}

// TypeMismatch occurs when an operator gets operands it can't handle
// or when a value can't be assigned to its target.
type TypeMismatch struct {
	Source string
	Detail string
}

func (e *TypeMismatch) Error() string {
	return "type mismatch in `" + e.Source + "`: " + e.Detail
}

// DomainError describes an expression that's outside what SatCheck
// can decide.  SatCheck reports it as the Reason of an Inconclusive
// result.
type DomainError struct {
	Source string
	Reason string
}

func (e *DomainError) Error() string {
	return "cannot decide `" + e.Source + "`: " + e.Reason
}

// EmptyTarget occurs when an update statement has no left-hand side.
var EmptyTarget = errors.New("update has no target")

func diagDetail(diags hcl.Diagnostics) string {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if d.Detail != "" {
			return d.Summary + ": " + d.Detail
		}
		return d.Summary
	}
	return diags.Error()
}
