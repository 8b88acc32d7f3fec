// Package diag defines the error taxonomy shared by every clox phase.
//
// Every failure is an *Error carrying a Kind and the source line it was
// detected on. Kind itself implements error so callers can classify with
// errors.Is:
//
//	if errors.Is(err, diag.UndefinedName) { ... }
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	_ Kind = iota

	Lex               // malformed token
	Parse             // grammar violation
	UndefinedName     // name not bound in any enclosing scope
	Type              // operator applied to unsupported operand kinds
	Bind              // assignment to non-lvalue or kind mismatch
	Arity             // wrong argument count or index count
	Redefinition      // name already bound, or nested function
	ControlFlowMisuse // break/continue/return without a consumer
	Assertion         // assert statement on a falsy value
	Runtime           // call depth, integer division by zero, index out of range

	kindCount
)

var kindNames = [...]string{
	Lex:               "lex error",
	Parse:             "parse error",
	UndefinedName:     "undefined name",
	Type:              "type error",
	Bind:              "bind error",
	Arity:             "arity error",
	Redefinition:      "redefinition error",
	ControlFlowMisuse: "control flow misuse",
	Assertion:         "assertion failed",
	Runtime:           "runtime error",
}

// String returns the human-readable name of k.
func (k Kind) String() string {
	if k > 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error lets a bare Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a diagnostic attached to a source line.
type Error struct {
	Kind Kind
	Line uint32 // 1-based; 0 when unknown
	Msg  string

	// AtEOF is set on parse errors raised because input ran out.
	// The REPL uses it to ask for a continuation line.
	AtEOF bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
}

// Is reports whether target is e's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Errorf returns a new *Error of kind k at line.
func Errorf(k Kind, line uint32, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Incomplete reports whether err is a parse error caused by input ending
// before the construct was closed.
func Incomplete(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == Parse && e.AtEOF
}

// At attaches line to err when err is an *Error that has no line yet.
// Other errors are returned unchanged.
func At(err error, line uint32) error {
	var e *Error
	if errors.As(err, &e) && e.Line == 0 {
		e.Line = line
	}
	return err
}
