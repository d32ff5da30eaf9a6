// Package errors provides standardized error types for the benchmark engine.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error codes form the closed taxonomy callers branch on. Callers must never
// branch on message content.
const (
	CodeSyntax      = "SYNTAX_ERROR"
	CodeCorrectness = "CORRECTNESS_FAILED"
	CodeTimeout     = "QUERY_TIMEOUT"
	CodeExecution   = "EXECUTION_FAILED"
	CodeConnection  = "CONNECTION_FAILED"
	CodeUnknown     = "UNKNOWN"
)

// BenchError represents an engine error with code, message, and optional details.
type BenchError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *BenchError) Is(target error) bool {
	t, ok := target.(*BenchError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *BenchError) WithDetail(key string, value interface{}) *BenchError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrInvalidSQL       = &BenchError{Code: CodeSyntax, Message: "invalid SQL"}
	ErrResultsMismatch  = &BenchError{Code: CodeCorrectness, Message: "candidate results differ from baseline"}
	ErrQueryTimeout     = &BenchError{Code: CodeTimeout, Message: "query execution timeout"}
	ErrExecutionFailed  = &BenchError{Code: CodeExecution, Message: "query execution failed"}
	ErrConnectionFailed = &BenchError{Code: CodeConnection, Message: "database connection failed"}
)

// New creates a new BenchError with the given code and message.
func New(code, message string) *BenchError {
	return &BenchError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a BenchError.
func Wrap(err error, code, message string) *BenchError {
	if err == nil {
		return nil
	}
	return &BenchError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *BenchError {
	if err == nil {
		return nil
	}
	return &BenchError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Code == CodeTimeout
	}
	return false
}

// IsCorrectness checks if an error is a correctness failure.
func IsCorrectness(err error) bool {
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Code == CodeCorrectness
	}
	return false
}

// IsSyntax checks if an error is a SQL syntax error.
func IsSyntax(err error) bool {
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Code == CodeSyntax
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Message
	}
	return err.Error()
}

// Classify maps an arbitrary error, including raw driver errors, onto the
// closed code taxonomy. Already-coded errors keep their code; driver errors
// are sniffed once here so the classification never leaks into callers.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var benchErr *BenchError
	if errors.As(err, &benchErr) {
		return benchErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return CodeTimeout
	case strings.Contains(msg, "syntax"), strings.Contains(msg, "parse error"):
		return CodeSyntax
	case strings.Contains(msg, "connection"), strings.Contains(msg, "connect"):
		return CodeConnection
	default:
		return CodeUnknown
	}
}
