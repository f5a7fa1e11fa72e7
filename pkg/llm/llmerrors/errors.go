// Package llmerrors provides structured error classification for LLM API
// interactions. The invoker layer uses the classification to decide between
// retrying and falling back to deterministic interviewer lines.
package llmerrors

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType represents different categories of LLM errors.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified LLM error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
// Uses blocklist approach: everything is retryable UNLESS explicitly non-retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// NewError creates a classified error with a message.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a classified error wrapping an underlying error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// NewErrorWithStatus creates a classified error with an HTTP status code.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

var statusCodeRe = regexp.MustCompile(`\b([45]\d{2})\b`)

// ExtractStatusCode pulls an HTTP status code out of an SDK error message.
// Returns 0 when no status code is present.
func ExtractStatusCode(errStr string) int {
	match := statusCodeRe.FindString(errStr)
	if match == "" {
		return 0
	}
	code, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return code
}

// Classify maps an arbitrary provider error to a structured error type based
// on status codes and common message patterns. Provider clients use this as
// their shared fallback classifier.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	switch ExtractStatusCode(errStr) {
	case 401, 403:
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication failed - check API key")
	case 429:
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limit exceeded")
	case 400:
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "bad request - check prompt format and parameters")
	case 500, 502, 503, 504:
		return NewErrorWithCause(ErrorTypeTransient, err, "server error")
	}

	if strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection") ||
		strings.Contains(lower, "network") ||
		strings.Contains(lower, "temporary") ||
		strings.Contains(lower, "eof") ||
		strings.Contains(lower, "reset") {
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	}

	if strings.Contains(lower, "rate") || strings.Contains(lower, "quota") {
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	}

	if strings.Contains(lower, "auth") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key") {
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	}

	return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified provider error")
}
