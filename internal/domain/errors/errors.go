// Package errors defines the typed errors surfaced by the event core.
// Callers import it as apperrors and branch on Code.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a machine-readable error kind.
type Code string

const (
	// CodeUnknown is reported for infrastructure failures and untyped errors.
	CodeUnknown Code = "UNKNOWN"

	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotAuthorized    Code = "NOT_AUTHORIZED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeScheduleConflict Code = "SCHEDULE_CONFLICT"
	CodeInvalidRole      Code = "INVALID_ROLE"
	CodeInvalidOperation Code = "INVALID_OPERATION"
)

// Sentinels for errors.Is checks; matching is by code only.
var (
	ErrValidation       = &Error{Code: CodeValidation}
	ErrNotAuthorized    = &Error{Code: CodeNotAuthorized}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrScheduleConflict = &Error{Code: CodeScheduleConflict}
	ErrInvalidRole      = &Error{Code: CodeInvalidRole}
	ErrInvalidOperation = &Error{Code: CodeInvalidOperation}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message naming the failed precondition
	Metadata map[string]string // Identifiers involved (event_id, user_id, version, ...)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata creates a domain error carrying identifiers for the caller.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// NotFound reports a missing resource of the given kind.
func NotFound(kind, id string) *Error {
	return WithMetadata(CodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), map[string]string{kind + "_id": id})
}

// NotAuthorized reports that userID lacks the role required for action on eventID.
func NotAuthorized(action, eventID, userID string) *Error {
	return WithMetadata(CodeNotAuthorized,
		fmt.Sprintf("not authorized to %s event %s", action, eventID),
		map[string]string{"event_id": eventID, "user_id": userID, "action": action})
}

// Validation reports an invalid or missing field.
func Validation(field, message string) *Error {
	return WithMetadata(CodeValidation, message, map[string]string{"field": field})
}
