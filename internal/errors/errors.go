package errors

import (
	"errors"
	"maps"
)

// MetaReason is the metadata key carrying the specific cause inside a code,
// e.g. "already_decided" for a CONFLICT raised by a second decision.
const MetaReason = "reason"

// Error is a domain error with a stable code and optional metadata the caller
// can use to render a precise message.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with the given code that keeps cause in the chain.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code. When the target carries a
// reason, the reasons must match too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	if reason := t.Metadata[MetaReason]; reason != "" {
		return e.Metadata[MetaReason] == reason
	}
	return true
}

// With returns a copy of e with key set to value in its metadata.
func (e *Error) With(key, value string) *Error {
	out := *e
	out.Metadata = make(map[string]string, len(e.Metadata)+1)
	maps.Copy(out.Metadata, e.Metadata)
	out.Metadata[key] = value
	return &out
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	out := *e
	out.Cause = cause
	return &out
}

// Reason returns the reason metadata, if any.
func (e *Error) Reason() string {
	return e.Metadata[MetaReason]
}

// Sentinels for errors.Is checks on the code alone.
var (
	ErrUnauthenticated       = New(CodeUnauthenticated, "authentication required")
	ErrForbidden             = New(CodeForbidden, "forbidden")
	ErrSelfApprovalForbidden = New(CodeSelfApprovalForbidden, "you cannot approve your own expense")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrConflict              = New(CodeConflict, "conflict")
	ErrValidationFailed      = New(CodeValidationFailed, "validation failed")
	ErrUnavailable           = New(CodeUnavailable, "service unavailable")
)

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}

// Message returns the domain message of err, or fallback when err is not a domain error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
