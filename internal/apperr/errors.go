// Package apperr defines the domain error taxonomy shared by the store,
// the service and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindProfanity         Kind = "profanity_rejected"
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindRateLimited       Kind = "rate_limited"
	KindInternal          Kind = "internal"
)

// Error is a classified domain failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrProfanity         = &Error{Kind: KindProfanity, Message: "blocked content"}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "missing identity"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrRateLimited       = &Error{Kind: KindRateLimited, Message: "rate limited"}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
