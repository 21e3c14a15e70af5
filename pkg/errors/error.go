// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Malformed order input, missing reference price, bad configuration
//   - Data/Resource errors (200-299): Unknown instruments and missing data
//   - Trading errors (500-599): Position management errors such as closing an empty position
//   - Market data errors (700-799): Upstream fetch and parse failures
//   - Persistence errors (900-999): State store load and save failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidQuantity, "quantity must be greater than zero")
//
//	// Wrap an upstream failure
//	err := errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch price", originalErr)
//
//	// Check error category
//	if errors.IsFetchError(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

func inRange(err error, low, high ErrorCode) bool {
	code := GetCode(err)

	return code >= low && code <= high
}

// IsValidationError reports whether err is a rejected user input
// (non-positive quantity or price, missing reference price, bad configuration).
func IsValidationError(err error) bool {
	return inRange(err, 100, 199)
}

// IsNotFoundError reports whether err refers to an unknown resource.
func IsNotFoundError(err error) bool {
	return inRange(err, 200, 299)
}

// IsNoPositionError reports whether err was caused by closing an empty position.
func IsNoPositionError(err error) bool {
	return HasCode(err, ErrCodeNoPosition)
}

// IsFetchError reports whether err was raised by the market data layer.
func IsFetchError(err error) bool {
	return inRange(err, 700, 799)
}

// IsPersistenceError reports whether err was raised by the state store.
func IsPersistenceError(err error) bool {
	return inRange(err, 900, 999)
}
