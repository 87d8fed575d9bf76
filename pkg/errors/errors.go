// Package errors provides structured error types for peerguard.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library callers
//   - Machine-readable error codes for programmatic handling
//   - A single place that decides which failures are fatal for an evaluation
//
// # Error Codes
//
// Codes mirror the failure taxonomy of the evaluation pipeline:
//   - MANIFEST_*: the dependency manifest is missing or malformed (fatal)
//   - REGISTRY_QUERY_FAILURE: one registry lookup failed (non-fatal, degrades to "unknown")
//   - LOG_FILE_NOT_FOUND: a build log handed to the analyzer does not exist
//   - REMEDIATION_WRITE_FAILURE: one remediation action failed (isolated)
//   - REPORT_PERSIST_FAILURE: the audit trail could not be written (fatal)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeManifestNotFound, "no package.json in %s", dir)
//	if errors.Is(err, errors.ErrCodeManifestNotFound) {
//	    // Handle missing manifest
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeReportPersist, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Manifest errors
	ErrCodeManifestNotFound Code = "MANIFEST_NOT_FOUND"
	ErrCodeManifestParse    Code = "MANIFEST_PARSE_ERROR"

	// Registry errors
	ErrCodeRegistryQuery Code = "REGISTRY_QUERY_FAILURE"

	// Log analysis errors
	ErrCodeLogFileNotFound Code = "LOG_FILE_NOT_FOUND"

	// Persistence errors
	ErrCodeRemediationWrite Code = "REMEDIATION_WRITE_FAILURE"
	ErrCodeReportPersist    Code = "REPORT_PERSIST_FAILURE"
	ErrCodeProjectLocked    Code = "PROJECT_LOCKED"

	// Internal errors
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
// It unwraps the error chain looking for an *Error with a matching code.
// Errors combined with errors.Join are searched as well.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Code == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	}
	if e != nil && e.Cause != nil {
		return Is(e.Cause, code)
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err must abort an evaluation. Manifest and report
// failures are fatal; per-lookup and per-action failures are not.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeRegistryQuery, ErrCodeRemediationWrite:
		return false
	}
	return err != nil
}
