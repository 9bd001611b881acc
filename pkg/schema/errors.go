package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeSyntax     = "SYNTAX_ERROR"
	ErrCodeTraversal  = "TRAVERSAL_ERROR"
	ErrCodeRender     = "RENDER_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeCancelled  = "CANCELLED"
)

// CodeflowError is the structured error type for all codeflow operations.
type CodeflowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CodeflowError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CodeflowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CodeflowError.
func NewError(code, message string) *CodeflowError {
	return &CodeflowError{Code: code, Message: message}
}

// NewErrorf creates a new CodeflowError with a formatted message.
func NewErrorf(code, format string, args ...any) *CodeflowError {
	return &CodeflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *CodeflowError) WithCause(err error) *CodeflowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CodeflowError) WithDetails(details map[string]any) *CodeflowError {
	e.Details = details
	return e
}

// ErrorCode returns the code of the first CodeflowError in err's chain, or "".
func ErrorCode(err error) string {
	var cerr *CodeflowError
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
