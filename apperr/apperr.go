// Package apperr defines the error kinds shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindValidation  Kind = "validation"  // bad input, recoverable by re-entry
	KindAuth        Kind = "auth"        // bad credentials, weak password
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindLocked      Kind = "locked"      // feature lock not opened for this session
	KindPersistence Kind = "persistence" // store unreachable or write failed
	KindGeneration  Kind = "generation"  // language service failure
)

// Error carries a Kind and a user-presentable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

func Auth(format string, args ...any) *Error {
	return newError(KindAuth, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, nil, format, args...)
}

func Locked(format string, args ...any) *Error {
	return newError(KindLocked, nil, format, args...)
}

// Persistence wraps a store failure.
func Persistence(err error, format string, args ...any) *Error {
	return newError(KindPersistence, err, format, args...)
}

// Generation wraps a language service failure.
func Generation(err error, format string, args ...any) *Error {
	return newError(KindGeneration, err, format, args...)
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-presentable message of err, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
