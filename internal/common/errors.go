// Package common defines the error vocabulary shared by all layers of the
// document service. Callers match errors with common.IsKind / errors.Is.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. The HTTP layer maps kinds to status
// codes; services never return raw driver or SDK errors to callers.
type Kind int

const (
	// KindInvalidInput marks malformed, oversized, or disallowed input.
	KindInvalidInput Kind = iota + 1
	// KindNotFound marks a missing or access-hidden entity.
	KindNotFound
	// KindForbidden marks an authenticated caller with an insufficient role.
	KindForbidden
	// KindConflict marks a uniqueness violation (duplicate grant, duplicate email).
	KindConflict
	// KindStorageUnavailable marks a transient blob-store or database failure,
	// safe for the caller to retry.
	KindStorageUnavailable
	// KindInternal marks an unexpected programmer error. The detailed cause is
	// logged; callers only see a generic message.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindStorageUnavailable:
		return "storage unavailable"
	default:
		return "internal error"
	}
}

// Error is a classified error with a human-readable message and an optional
// wrapped cause. The message is safe to show to API clients; the cause is not.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error without a cause.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errf builds a classified error with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err. Unclassified errors count as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus returns the status code a transport layer should answer with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidInput:
		return 400
	case KindNotFound:
		return 404
	case KindForbidden:
		return 403
	case KindConflict:
		return 409
	case KindStorageUnavailable:
		return 503
	default:
		return 500
	}
}

var (
	// Repository-level sentinel, translated to taxonomy errors by services.
	ErrorNotFound = errors.New("not found")

	// Auth-specific sentinels. These map to 401, outside the core taxonomy.
	ErrorInvalidToken       = errors.New("invalid token")
	ErrorInvalidCredentials = errors.New("invalid email or password")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)
