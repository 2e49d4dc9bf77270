// Package errors provides shared error types that map to both CLI exit codes
// and HTTP status codes, so the CLI and the API report board failures the same way.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind represents the category of an error, which determines both the
// CLI exit code and HTTP status code.
type Kind int

const (
	// KindValidation represents a missing or malformed required field.
	// CLI exit code: 2, HTTP status: 400 Bad Request
	KindValidation Kind = iota

	// KindNotFound represents a ticket or subtask that no longer exists.
	// CLI exit code: 3, HTTP status: 404 Not Found
	KindNotFound

	// KindStorage represents a failed persistence operation.
	// CLI exit code: 5, HTTP status: 500 Internal Server Error
	KindStorage

	// KindAttachmentIO represents a failed attachment read or write.
	// CLI exit code: 7, HTTP status: 500 Internal Server Error
	KindAttachmentIO

	// KindGeneral represents a general error that doesn't fit other categories.
	// CLI exit code: 1, HTTP status: 500 Internal Server Error
	KindGeneral
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindStorage:
		return "Storage"
	case KindAttachmentIO:
		return "AttachmentIO"
	case KindGeneral:
		return "General"
	default:
		return "Unknown"
	}
}

// Error is a categorised error with an optional cause and suggestion.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	Details    map[string]interface{}
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CLIExitCode returns the appropriate CLI exit code for this error.
func (e *Error) CLIExitCode() int {
	switch e.Kind {
	case KindValidation:
		return 2
	case KindNotFound:
		return 3
	case KindStorage:
		return 5
	case KindAttachmentIO:
		return 7
	default:
		return 1
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails adds details to the error and returns it for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error and returns it for chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// Constructor functions

// Validation creates an error for a missing or malformed field.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for missing tickets or subtasks.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Storage creates an error for persistence failures.
func Storage(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...)}
}

// AttachmentIO creates an error for attachment file failures.
func AttachmentIO(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAttachmentIO, Message: fmt.Sprintf(format, args...)}
}

// General creates a general error.
func General(format string, args ...interface{}) *Error {
	return &Error{Kind: KindGeneral, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a specific kind and message.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// WrapStorage wraps an error as a storage error.
func WrapStorage(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindStorage, format, args...)
}

// WrapAttachment wraps an error as an attachment I/O error.
func WrapAttachment(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindAttachmentIO, format, args...)
}

// GetKind extracts the Kind from an error chain, returning KindGeneral if no
// *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// GetCLIExitCode extracts the CLI exit code from an error.
func GetCLIExitCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.CLIExitCode()
	}
	return 1
}

// GetHTTPStatus extracts the HTTP status code from an error.
func GetHTTPStatus(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Is returns true if the error chain contains an *Error of the specified kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
