// Package errors provides structured error types for stacklock.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Requirement chains attached to conflict and resolution failures
//
// # Error Codes
//
// Every failure of the lock and graph engine maps to exactly one code:
//   - INVALID_REQUIREMENT: a requirement or manifest could not be parsed
//   - CONFLICT: two requirements for one package cannot be merged
//   - RESOLUTION_IMPOSSIBLE: the search space was exhausted
//   - INVALID_LOCK: a lock artifact is unreadable or corrupt
//   - PROVIDER: package metadata could not be fetched
//   - USAGE: an invalid combination of options was requested
//
// # Usage
//
//	err := errors.New(errors.ErrCodeParse, "invalid requirement %q", line)
//	if errors.Is(err, errors.ErrCodeParse) {
//	    // nothing was written
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeProvider, origErr, "fetch %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeParse      Code = "INVALID_REQUIREMENT"
	ErrCodeConflict   Code = "CONFLICT"
	ErrCodeResolution Code = "RESOLUTION_IMPOSSIBLE"
	ErrCodeFormat     Code = "INVALID_LOCK"
	ErrCodeProvider   Code = "PROVIDER"
	ErrCodeUsage      Code = "USAGE"

	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an error carrying a matching code,
// which includes *Error as well as the typed errors in this package.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For coded errors, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	var u interface{ UserMessage() string }
	if errors.As(err, &u) {
		return u.UserMessage()
	}
	return err.Error()
}

type coder interface {
	ErrorCode() Code
}

// ErrorCode returns the error code.
func (e *Error) ErrorCode() Code { return e.Code }
