package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Spark error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrPromptRejected  ErrorCode = "PROMPT_REJECTED"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrAlreadyExists   ErrorCode = "ALREADY_EXISTS"   // 409
	ErrSearchExhausted ErrorCode = "SEARCH_EXHAUSTED" // 500
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// Messages returned to callers for well-known failures.
const (
	MsgPromptRequired = "Prompt is required"
	MsgPromptRejected = "Prompt does not describe a recognizable project interest"
	MsgInternal       = "Internal server error"
)

// SparkError represents a structured error with code, status, and details.
type SparkError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. It is never shown to callers.
	Cause error
}

// Error implements the error interface.
func (e *SparkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SparkError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SparkError {
	return &SparkError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewPromptRequired creates a 400 error for a missing or blank prompt.
func NewPromptRequired() *SparkError {
	return NewInvalidRequest(MsgPromptRequired)
}

// NewPromptRejected creates a 400 error for prompts that fail the quality gate.
// reason names the rule that rejected the prompt.
func NewPromptRejected(reason string) *SparkError {
	e := &SparkError{
		Code:    ErrPromptRejected,
		Status:  400,
		Message: MsgPromptRejected,
	}
	if reason != "" {
		e.Details = map[string]any{"reason": reason}
	}
	return e
}

// NewNotFound creates a 404 error for when a project cannot be found.
func NewNotFound(identifier string) *SparkError {
	return &SparkError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("project not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewAlreadyExists creates a 409 error for id collisions.
func NewAlreadyExists(id string) *SparkError {
	return &SparkError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("project with id %q already exists", id),
		Details: map[string]any{"id": id},
	}
}

// NewSearchExhausted creates a 500 error when every search stage failed.
func NewSearchExhausted(cause error) *SparkError {
	return &SparkError{
		Code:    ErrSearchExhausted,
		Status:  500,
		Message: "all search stages failed",
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SparkError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SparkError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if err is, or wraps, a SparkError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SparkError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the SparkError in err's chain, if any.
func As(err error) (*SparkError, bool) {
	var sErr *SparkError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Public reports whether the error message is safe to show to callers.
// Internal failures are reported generically.
func (e *SparkError) Public() bool {
	return e.Status < 500
}
