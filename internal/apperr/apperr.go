// Package apperr defines the operational error taxonomy of the marketplace
// core. Every failure a core operation can legitimately produce carries a
// stable Kind so the API boundary can map it to a response without
// re-deriving semantics. Anything that is not an *apperr.Error is an
// internal error and must not be surfaced verbatim to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operational error.
type Kind string

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation Kind = "validation"
	// KindConflict marks uniqueness or state-transition violations.
	KindConflict Kind = "conflict"
	// KindForbidden marks trust-gate rejections and wrong-actor failures.
	KindForbidden Kind = "forbidden"
	// KindNotFound marks an absent referenced entity.
	KindNotFound Kind = "not_found"
	// KindPrecondition marks an operation whose domain preconditions do not
	// hold, e.g. marking sold with no bids and no explicit buyer.
	KindPrecondition Kind = "precondition"
)

// Error is an operational, caller-safe error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is match any two apperr errors of the same Kind, so
// callers can compare against sentinel-style values built with New.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Precondition builds a KindPrecondition error.
func Precondition(format string, args ...any) *Error {
	return New(KindPrecondition, format, args...)
}

// KindOf extracts the Kind from err. The second return is false when err is
// not an operational error (i.e. it is internal).
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is an operational error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
