// File: api/errors.go
//
// Common error types and error handling utilities for the virtwire module.

package api

import "fmt"

// Common errors used across the module.
var (
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrLimitExceeded     = fmt.Errorf("endpoint limit exceeded")
	ErrAlreadyRegistered = fmt.Errorf("endpoint already registered")
	ErrNotFound          = fmt.Errorf("endpoint not found")
	ErrTransportFailure  = fmt.Errorf("transport failure")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrMediumClosed      = fmt.Errorf("medium is closed")
	ErrMuxClosed         = fmt.Errorf("multiplexer is closed")
)

// ErrorCode represents specific error conditions in the module.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeLimitExceeded
	ErrCodeAlreadyRegistered
	ErrCodeNotFound
	ErrCodeTransportFailure
	ErrCodeNotSupported
	ErrCodeClosed
)

// Error is a structured error carrying a code and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code back to the matching sentinel so callers can test
// with errors.Is against the package-level errors.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeLimitExceeded:
		return ErrLimitExceeded
	case ErrCodeAlreadyRegistered:
		return ErrAlreadyRegistered
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeTransportFailure:
		return ErrTransportFailure
	case ErrCodeNotSupported:
		return ErrNotSupported
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
