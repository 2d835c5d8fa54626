// Package cosmorunerr defines the error taxonomy shared by every core
// component: a fixed set of Kinds and the fatal/warning policy attached to
// each, per the core's error handling design.
package cosmorunerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error without tying callers to a concrete error type.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindIO
	KindParse
	KindIncludeNotFound
	KindSymbolNotFound
	KindDuplicateSymbol
	KindRelocationOverflow // never surfaced; handled internally by gotplt
	KindRelocationLayout
	KindJITAlloc
	KindImportNotFound
	KindResolve
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindIO:
		return "IOError"
	case KindParse:
		return "ParseError"
	case KindIncludeNotFound:
		return "IncludeNotFound"
	case KindSymbolNotFound:
		return "SymbolNotFound"
	case KindDuplicateSymbol:
		return "DuplicateSymbol"
	case KindRelocationOverflow:
		return "RelocationOverflow"
	case KindRelocationLayout:
		return "RelocationLayoutError"
	case KindJITAlloc:
		return "JITAllocError"
	case KindImportNotFound:
		return "ImportNotFound"
	case KindResolve:
		return "ResolveError"
	default:
		return "UnknownError"
	}
}

// DefaultFatal reports whether errors of this kind are fatal by default.
// Callers may override via driver.Options.StrictWarnings for the three
// kinds the spec explicitly allows downgrading to warnings.
func (k Kind) DefaultFatal() bool {
	switch k {
	case KindIncludeNotFound, KindSymbolNotFound, KindDuplicateSymbol:
		return false
	case KindRelocationOverflow:
		return false // internal only, never surfaced either way
	default:
		return true
	}
}

// Error is a structured error carrying a Kind alongside the usual message
// and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, otherwise KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err should abort the operation given strict,
// which promotes every warning-by-default kind to fatal.
func IsFatal(err error, strict bool) bool {
	if err == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	if strict {
		return true
	}
	return e.Kind.DefaultFatal()
}
