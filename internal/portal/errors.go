package portal

import (
	"errors"
	"fmt"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/store"
)

// Kind classifies a refused operation.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidState    Kind = "invalid_state"
	KindAlreadyApproved Kind = "already_approved"
	KindValidation      Kind = "validation"
	KindVideoNotWatched Kind = "video_not_watched"
	KindInternal        Kind = "internal"
)

// Error is a refused operation with a message fit for end users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinels by kind. An already-approved refusal also matches
// ErrInvalidState.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind || (e.Kind == KindAlreadyApproved && t.Kind == KindInvalidState)
}

var (
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrAlreadyApproved = &Error{Kind: KindAlreadyApproved}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrVideoNotWatched = &Error{Kind: KindVideoNotWatched}
)

func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err, mapping access and store sentinels onto portal kinds.
func KindOf(err error) Kind {
	var pe *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, access.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, access.ErrForbidden):
		return KindForbidden
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	}
	return KindInternal
}

// Result is the outcome reported to callers: success with a message, or a
// failure kind with a message. Internal failures never leak their cause.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    Kind   `json:"code,omitempty"`
}

func Succeeded(msg string) Result { return Result{Success: true, Message: msg} }

func Failed(err error) Result {
	kind := KindOf(err)
	var pe *Error
	msg := "something went wrong, please try again"
	switch {
	case errors.As(err, &pe) && pe.Message != "":
		msg = pe.Message
	case kind == KindUnauthorized:
		msg = "you must be signed in"
	case kind == KindForbidden:
		msg = "you do not have permission to do that"
	case kind == KindNotFound:
		msg = "not found"
	}
	return Result{Success: false, Message: msg, Code: kind}
}
