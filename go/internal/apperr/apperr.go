// Package apperr carries the client-facing error taxonomy of the party engine.
// App layers return these; service layers map them onto connect codes and
// HTTP statuses without inspecting message text.
package apperr

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"
)

// Kind classifies an error by how the client should react to it
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindRemoved
	KindPrecondition
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindRemoved:
		return "removed"
	case KindPrecondition:
		return "precondition"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// ReasonRemoved is the reason attached to every Removed error.
const ReasonRemoved = "removed"

// Error is a classified error with a reason that is safe to show to clients
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and reason so callers can compare against sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Unauthenticated(reason string) error {
	return &Error{Kind: KindUnauthenticated, Reason: reason}
}

func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// Removed marks a request made with the token of a kicked player.
func Removed() error {
	return &Error{Kind: KindRemoved, Reason: ReasonRemoved}
}

func Precondition(reason string) error {
	return &Error{Kind: KindPrecondition, Reason: reason}
}

func Invalid(reason string) error {
	return &Error{Kind: KindInvalid, Reason: reason}
}

// Invalidf wraps a parse failure as an invalid argument.
func Invalidf(reason string, err error) error {
	return &Error{Kind: KindInvalid, Reason: reason, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the client-facing reason, or a generic one for internal errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Reason
	}
	return "internal error"
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Code maps err onto a connect status code.
func Code(err error) connect.Code {
	switch KindOf(err) {
	case KindNotFound:
		return connect.CodeNotFound
	case KindUnauthenticated:
		return connect.CodeUnauthenticated
	case KindForbidden, KindRemoved:
		return connect.CodePermissionDenied
	case KindPrecondition:
		return connect.CodeFailedPrecondition
	case KindInvalid:
		return connect.CodeInvalidArgument
	default:
		return connect.CodeInternal
	}
}

// HTTPStatus maps err onto the status used by the plain HTTP endpoints.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindRemoved:
		return http.StatusForbidden
	case KindPrecondition, KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
