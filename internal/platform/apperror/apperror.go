// Package apperror defines the failure taxonomy surfaced to callers.
//
// Components declare sentinel errors with New and return them wrapped around
// the underlying cause with Wrap. errors.Is matches on kind and message, so a
// wrapped sentinel still compares equal to the sentinel.
package apperror

import "errors"

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindExternalService
	KindNoContent
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExternalService:
		return "external_service"
	case KindNoContent:
		return "no_content"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is a typed failure with a stable, human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a sentinel error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NoContent creates a no-content error.
func NoContent(message string) *Error {
	return New(KindNoContent, message)
}

// Auth creates an authentication/authorization error.
func Auth(message string) *Error {
	return New(KindAuth, message)
}

// External wraps a collaborator failure.
func External(message string, cause error) *Error {
	return &Error{Kind: KindExternalService, Message: message, Err: cause}
}

// Wrap returns a copy of sentinel carrying cause.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
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

// Is reports whether target is an *Error with the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the public message of the first *Error in err's chain,
// or fallback when there is none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
