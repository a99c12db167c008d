package errs

import (
	"errors"
	"fmt"
)

// Error represents a categorical failure of a ledger or analytics operation.
//
// Every mutating operation either commits fully or returns one of these
// categories with no partial state change. The categories are part of the
// public contract; callers branch on Code, not on message text.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context (identifiers, bounds).
	Details map[string]string
}

// Code categorizes operation errors.
type Code string

const (
	// CodeUnauthorized indicates access control denied the operation.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeInvalidData indicates a caller-supplied value violates a
	// positivity, range, or capacity constraint.
	CodeInvalidData Code = "INVALID_DATA"

	// CodeNotFound indicates the referenced record does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates the target key is already occupied.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeInvalidSensor indicates a sensor set is empty after filtering
	// to currently-authorized sensors.
	CodeInvalidSensor Code = "INVALID_SENSOR"

	// CodeInvalidPeriod indicates a window or period outside configured bounds.
	CodeInvalidPeriod Code = "INVALID_PERIOD"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetail attaches a key/value pair to the error's details.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Unauthorized creates an access-denied error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// InvalidData creates a constraint-violation error.
func InvalidData(message string) *Error {
	return &Error{Code: CodeInvalidData, Message: message}
}

// NotFound creates a missing-record error.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// AlreadyExists creates a key-occupied error.
func AlreadyExists(message string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: message}
}

// InvalidSensor creates an empty-sensor-set error.
func InvalidSensor(message string) *Error {
	return &Error{Code: CodeInvalidSensor, Message: message}
}

// InvalidPeriod creates an out-of-bounds-period error.
func InvalidPeriod(message string) *Error {
	return &Error{Code: CodeInvalidPeriod, Message: message}
}

// CodeOf extracts the category from an error.
// Returns the empty Code if err is not (or does not wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnauthorized reports whether err is an access-denied error.
// Uses errors.As to handle wrapped errors.
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }

// IsInvalidData reports whether err is a constraint-violation error.
func IsInvalidData(err error) bool { return CodeOf(err) == CodeInvalidData }

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsAlreadyExists reports whether err is a key-occupied error.
func IsAlreadyExists(err error) bool { return CodeOf(err) == CodeAlreadyExists }

// IsInvalidSensor reports whether err is an empty-sensor-set error.
func IsInvalidSensor(err error) bool { return CodeOf(err) == CodeInvalidSensor }

// IsInvalidPeriod reports whether err is an out-of-bounds-period error.
func IsInvalidPeriod(err error) bool { return CodeOf(err) == CodeInvalidPeriod }
