// Package apperr defines the typed failures returned by the content engine.
// Every error leaving a service carries one Kind and a message that is safe
// to show to API clients.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are strings so they serialize naturally.
type Kind string

const (
	// KindNotFound indicates the entity or its parent does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindForbidden indicates the principal lacks ownership or role.
	KindForbidden Kind = "FORBIDDEN"

	// KindInvalidRequest covers bad order values, order conflicts, batch size
	// and shape violations, delete/restore state conflicts and illegal
	// status transitions.
	KindInvalidRequest Kind = "INVALID_REQUEST"

	// KindInternal indicates a storage or programming failure. Its message is fixed.
	KindInternal Kind = "INTERNAL"
)

// Error is the single error type surfaced by services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage failure. msg describes the step that failed.
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err. Untyped errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
