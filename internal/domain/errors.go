package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindAuthentication    Kind = "AUTHENTICATION_ERROR"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInternal          Kind = "INTERNAL"
)

// Error is returned by every floor operation that rejects a request.
// Code narrows the Kind when callers need to tell reasons apart.
type Error struct {
	Kind    Kind
	Code    string
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

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}

	ErrNoActiveShift = &Error{Kind: KindNotFound, Code: "NO_ACTIVE_SHIFT"}
	ErrShiftOpen     = &Error{Kind: KindConflict, Code: "SHIFT_ALREADY_OPEN"}
	ErrEmailTaken    = &Error{Kind: KindConflict, Code: "EMAIL_TAKEN"}
	ErrTableInUse    = &Error{Kind: KindConflict, Code: "TABLE_IN_USE"}
	ErrArchived      = &Error{Kind: KindConflict, Code: "ARCHIVED"}
)

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Archived reports a write against a retired menu or inventory row.
func Archived(entity, id string) *Error {
	return &Error{Kind: KindConflict, Code: ErrArchived.Code, Message: fmt.Sprintf("%s %s is archived", entity, id)}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: "invalid or missing token", Cause: cause}
}

func InvalidTransition(entity string, from, to any) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %v to %v", entity, from, to),
	}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
