package errors

import (
	stderrors "errors"
	"sort"
	"strings"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // User-facing message
	Metadata map[string]string // Additional context for logs
	Fields   map[string]string // Per-field validation messages
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
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

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying log context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation builds a validation error from field messages. The message is
// the first field message in key order, so single-field failures read
// naturally.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	message := "validation failed"
	if len(keys) > 0 {
		message = fields[keys[0]]
	}
	cloned := make(map[string]string, len(fields))
	for key, value := range fields {
		cloned[key] = value
	}
	return &Error{Code: CodeValidation, Message: message, Fields: cloned}
}

// Invalid is shorthand for a single-field validation error.
func Invalid(field, message string) *Error {
	return Validation(map[string]string{field: message})
}

// FieldErrors accumulates validation messages.
type FieldErrors map[string]string

// Add records message for field unless one is already recorded.
func (f FieldErrors) Add(field, message string) {
	if _, ok := f[field]; ok {
		return
	}
	f[field] = strings.TrimSpace(message)
}

// Err returns a validation error, or nil when nothing was recorded.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

// As extracts a domain error from err's chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// CodeOf returns the domain code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	if domainErr, ok := As(err); ok {
		return domainErr.Code
	}
	return CodeUnknown
}

// HTTPStatus returns the HTTP status for err.
func HTTPStatus(err error) int {
	return CodeOf(err).HTTPStatus()
}
