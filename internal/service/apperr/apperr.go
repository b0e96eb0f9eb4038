// Package apperr classifies service failures into client and server errors.
//
// Every error returned by the service layer is either one of the sentinels
// below, an *Error built by Invalid or Internal, or an unclassified error that
// callers must treat as internal.
package apperr

import "errors"

// Kind is the failure class of an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrMissingIdempotencyKey = &Error{
		Kind:    KindInvalid,
		Code:    "idempotency_key_required",
		Message: "missing idempotency key",
	}
	ErrIdempotencyConflict = &Error{
		Kind:    KindConflict,
		Code:    "idempotency_conflict",
		Message: "idempotency key already used with a different payload",
	}
	ErrOrderNotFound = &Error{
		Kind:    KindNotFound,
		Code:    "order_not_found",
		Message: "order not found",
	}
	ErrSimulatedFailure = &Error{
		Kind:    KindInternal,
		Code:    "simulated_failure",
		Message: "simulated failure after commit",
	}
)

// Invalid reports a malformed or semantically invalid request.
func Invalid(msg string, err error) error {
	return &Error{Kind: KindInvalid, Code: "invalid_request", Message: msg, Err: err}
}

// Internal wraps an unexpected failure. The wrapped error is kept for logs
// and never shown to clients.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsClient reports whether err was caused by the caller's request.
func IsClient(err error) bool {
	return err != nil && KindOf(err) != KindInternal
}
