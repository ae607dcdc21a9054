// Package errors defines the failure kinds a package build can end with.
//
// Every fatal error reported by a build is an *Error carrying a Kind, the
// component that raised it (Op) and, when one is involved, the offending path.
// Callers branch on the kind rather than on message text:
//
//	if errors.Is(err, errors.Configuration) {
//	    // descriptor is missing "target" or "out"
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a build failure.
type Kind string

const (
	// Configuration means the descriptor is incomplete or malformed.
	Configuration Kind = "configuration"
	// UnsupportedInput means an input file cannot be materialized (stream-only).
	UnsupportedInput Kind = "unsupported input"
	// DescriptorLoad means a stored descriptor could not be read or parsed.
	DescriptorLoad Kind = "descriptor load"
	// Write means a file of the package tree could not be written.
	Write Kind = "write"
	// Archiver means the archiver failed to run or reported a failure.
	Archiver Kind = "archiver"
	// Sign means the built archive could not be signed.
	Sign Kind = "sign"
)

// Error is a build failure.
type Error struct {
	Kind Kind   // failure class
	Op   string // originating component, e.g. "build.control"
	Path string // offending file, if any
	Msg  string // human readable detail
	Err  error  // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around an existing error.
func Wrap(kind Kind, op, path string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Msg:  fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

// Is reports whether err, or any error it wraps, is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or the empty Kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
