package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Series and indicator errors
	ErrOutOfOrderSample = &Error{Code: "OUT_OF_ORDER_SAMPLE", Message: "sample timestamp not after last stored sample"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}

	// Sentiment errors
	ErrScoringFailed = &Error{Code: "SCORING_FAILED", Message: "text could not be scored"}

	// Collaborator errors
	ErrCollectorFailed = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}
	ErrNotifierFailed  = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}
	ErrStoreFailed     = &Error{Code: "STORE_FAILED", Message: "store operation failed"}
	ErrNotFound        = &Error{Code: "NOT_FOUND", Message: "not found"}

	// Request errors
	ErrInvalidRequest = &Error{Code: "INVALID_REQUEST", Message: "invalid request parameter"}
)
