package cli

import (
	"errors"
	"fmt"
	"strings"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
)

// CLIError is an argument or environment error raised by the command layer
// itself, before the board service is involved.
type CLIError struct {
	Code       int
	Message    string
	Cause      error
	Suggestion string
}

func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// FormatError returns the error message with suggestion if present
func (e *CLIError) FormatError() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.Error())
	if e.Suggestion != "" {
		b.WriteString("\n\nSuggestion: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// ExitCode returns the exit code for any error.
// Supports both CLIError and the shared errors.Error type.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// The outermost CLIError decides, so a wrapped service error keeps the
	// code the command chose for it.
	var cerr *CLIError
	if errors.As(err, &cerr) {
		return cerr.Code
	}

	var sharedErr *werrors.Error
	if errors.As(err, &sharedErr) {
		return sharedErr.CLIExitCode()
	}
	return ExitGeneralError
}

// FormatErrorMessage returns formatted error with suggestion if available.
// Supports both CLIError and the shared errors.Error type.
func FormatErrorMessage(err error) string {
	var cerr *CLIError
	if errors.As(err, &cerr) {
		return cerr.FormatError()
	}

	var sharedErr *werrors.Error
	if errors.As(err, &sharedErr) {
		var b strings.Builder
		b.WriteString("Error: ")
		b.WriteString(sharedErr.Error())
		if sharedErr.Suggestion != "" {
			b.WriteString("\n\nSuggestion: ")
			b.WriteString(sharedErr.Suggestion)
		}
		return b.String()
	}

	return "Error: " + err.Error()
}

// Error constructors with proper exit codes

// ErrInvalidArgs creates an error for invalid arguments (exit code 2)
func ErrInvalidArgs(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitInvalidArgs,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrInvalidArgsWithSuggestion creates an error for invalid arguments with a suggestion
func ErrInvalidArgsWithSuggestion(suggestion, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitInvalidArgs,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
}

// ErrStorage creates an error for store operations (exit code 5)
func ErrStorage(cause error, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitStorageError,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
		Suggestion: SuggestRunInit,
	}
}

// ErrAttachment creates an error for attachment file operations (exit code 7)
func ErrAttachment(cause error, format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitAttachment,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Common suggestions
const (
	SuggestRunInit     = "Run 'taskman init' to create the data directory, or check --data-dir."
	SuggestTicketID    = "Ticket IDs are numbers, optionally written as #42."
	SuggestShowBoard   = "Run 'taskman board' to see ticket IDs."
	SuggestListStores  = "Run 'taskman store list' to see available stores."
	SuggestStatusNames = "Valid columns are Todo, Doing and Done."
)
