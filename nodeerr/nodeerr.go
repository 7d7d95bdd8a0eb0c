// Package nodeerr defines the node-wide error representation. Every error
// that crosses a component boundary is tagged with a Kind so top-level
// handlers can branch on its category without importing the component's own
// error types.
package nodeerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind is the stable category of a node error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindOutPoint
	KindTransaction
	KindScript
	KindHeader
	KindBlock
	KindDao
	KindSpec
)

var kindNames = [...]string{
	KindInternal:    "Internal",
	KindOutPoint:    "OutPoint",
	KindTransaction: "Transaction",
	KindScript:      "Script",
	KindHeader:      "Header",
	KindBlock:       "Block",
	KindDao:         "Dao",
	KindSpec:        "Spec",
}

// String returns the kind's name, e.g. "Transaction".
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is a categorized node error.
type Error struct {
	kind  Kind
	cause error
}

// New tags cause with kind and records the caller's stack. It returns an
// untyped nil for a nil cause, so the result can be compared against nil.
func New(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, cause: errors.WithStackDepth(cause, 1)}
}

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// Error renders "<Kind>: <cause>".
func (e *Error) Error() string {
	return e.kind.String() + ": " + e.cause.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Format prints the cause's stack trace with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.kind, e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.kind, true
	}
	return KindInternal, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
