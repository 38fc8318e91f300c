package entities

import (
	"errors"
	"fmt"
)

// ErrorCode classifies domain failures.
type ErrorCode string

const (
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrRetrievalDegraded ErrorCode = "RETRIEVAL_DEGRADED"
	ErrGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	ErrIngestFailed      ErrorCode = "INGEST_FAILED"
	ErrNotFound          ErrorCode = "NOT_FOUND"
)

// GenericGenerationMessage is the only generation failure text shown to clients.
const GenericGenerationMessage = "The answer could not be generated. Please try again."

// Error is the domain error type.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// NewError creates an Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the code of the first *Error in the chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
