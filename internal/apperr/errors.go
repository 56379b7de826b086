// Package apperr defines the typed errors the engine surfaces to the
// presentation layer. Every error carries a short, user-displayable
// message; the UI shows Message verbatim and never inspects internals.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes application errors.
type Kind string

const (
	// KindNotAuthenticated indicates an operation requiring a signed-in
	// user was invoked without one.
	KindNotAuthenticated Kind = "NOT_AUTHENTICATED"

	// KindNotFound indicates a referenced task, habit, or sub-task does
	// not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindInsufficientPoints indicates a spend precondition failed.
	KindInsufficientPoints Kind = "INSUFFICIENT_POINTS"

	// KindPersistence indicates an underlying store call failed,
	// wrapping the transport-level cause.
	KindPersistence Kind = "PERSISTENCE_FAILURE"

	// KindPartialUpdate indicates the entity write and the ledger
	// append disagree: one succeeded, the other failed. The state is
	// surfaced to the user and never silently reconciled.
	KindPartialUpdate Kind = "PARTIAL_UPDATE"

	// KindInvalidInput indicates a caller-supplied value failed
	// validation before reaching the store.
	KindInvalidInput Kind = "INVALID_INPUT"
)

// Error is a kind-coded application error.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a short human-readable description, suitable for
	// direct display.
	Message string

	// Err is the wrapped underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause. A nil cause yields a plain Error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, or empty when err is not an
// application error. Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotAuthenticated reports whether err is a NotAuthenticated error.
func IsNotAuthenticated(err error) bool { return KindOf(err) == KindNotAuthenticated }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInsufficientPoints reports whether err is an InsufficientPoints error.
func IsInsufficientPoints(err error) bool { return KindOf(err) == KindInsufficientPoints }

// IsPersistence reports whether err is a PersistenceFailure error.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// IsPartialUpdate reports whether err is a PartialUpdate error.
func IsPartialUpdate(err error) bool { return KindOf(err) == KindPartialUpdate }

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalidInput }
