// Package apperror provides the domain error taxonomy of the backlog tracker.
//
// Every domain failure is an *Error carrying a machine-readable Code. Codes
// group into a small set of Kinds callers can branch on without knowing each
// code. errors.Is matches by code, so callers compare against the sentinels:
//
//	if errors.Is(err, apperror.ErrUserNotFound) { ... }
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lookup errors
	CodeUserNotFound Code = "USER_NOT_FOUND"
	CodeShowNotFound Code = "SHOW_NOT_FOUND"

	// Uniqueness errors
	CodeNonUniqueUser Code = "NON_UNIQUE_USER"
	CodeNonUniqueShow Code = "NON_UNIQUE_SHOW"

	// Payload errors
	CodeInvalidPayload   Code = "INVALID_PAYLOAD"
	CodeInvalidMALStatus Code = "INVALID_MAL_STATUS"

	// State errors
	CodeUserPasswordNotSet    Code = "USER_PASSWORD_NOT_SET"
	CodeShowNotInBacklog      Code = "SHOW_NOT_IN_BACKLOG"
	CodeDuplicateBacklogEntry Code = "DUPLICATE_BACKLOG_ENTRY"
	CodeAlreadyFriends        Code = "ALREADY_FRIENDS"
)

// Kind is the broad category of a Code.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidInput      Kind = "invalid_input"
	KindPreconditionUnmet Kind = "precondition_unmet"
)

// Kind maps a code to its category.
func (c Code) Kind() Kind {
	switch c {
	case CodeUserNotFound, CodeShowNotFound:
		return KindNotFound
	case CodeNonUniqueUser, CodeNonUniqueShow, CodeDuplicateBacklogEntry, CodeAlreadyFriends:
		return KindConflict
	case CodeInvalidPayload, CodeInvalidMALStatus:
		return KindInvalidInput
	case CodeUserPasswordNotSet, CodeShowNotInBacklog:
		return KindPreconditionUnmet
	default:
		return KindUnknown
	}
}

// Error is a domain error.
type Error struct {
	Code    Code     // Machine-readable error code
	Message string   // Human-readable message
	Details []string // Validation messages or conflicting record ids
	Err     error    // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the category of the error's code.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrUserNotFound          = &Error{Code: CodeUserNotFound}
	ErrShowNotFound          = &Error{Code: CodeShowNotFound}
	ErrNonUniqueUser         = &Error{Code: CodeNonUniqueUser}
	ErrNonUniqueShow         = &Error{Code: CodeNonUniqueShow}
	ErrInvalidPayload        = &Error{Code: CodeInvalidPayload}
	ErrInvalidMALStatus      = &Error{Code: CodeInvalidMALStatus}
	ErrUserPasswordNotSet    = &Error{Code: CodeUserPasswordNotSet}
	ErrShowNotInBacklog      = &Error{Code: CodeShowNotInBacklog}
	ErrDuplicateBacklogEntry = &Error{Code: CodeDuplicateBacklogEntry}
	ErrAlreadyFriends        = &Error{Code: CodeAlreadyFriends}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails creates a domain error carrying detail lines.
func WithDetails(code Code, message string, details []string) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// KindOf extracts the error kind from any error.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

// DetailsOf returns the details of a domain error, or nil.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
