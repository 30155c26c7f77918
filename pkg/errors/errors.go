package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrGuardViolation     = errors.New("transition guard violated")
	ErrInvariantViolation = errors.New("invariant violated")
)

// Error codes carried by AppError.Code
const (
	CodeNotFound               = "NOT_FOUND"
	CodeBadRequest             = "BAD_REQUEST"
	CodeConflict               = "CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInternal               = "INTERNAL_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeGuardViolation         = "GUARD_VIOLATION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeOverReceipt            = "OVER_RECEIPT"
	CodeInvalidState           = "INVALID_STATE"
	CodeInvariantViolation     = "INVARIANT_VIOLATION"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       CodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// ConcurrentModification reports that a row changed between read and write.
func ConcurrentModification(resource, id string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConcurrentModification,
		Message:    fmt.Sprintf("%s %s was modified concurrently, reload and retry", resource, id),
		StatusCode: http.StatusConflict,
	}
}

// TransactionAborted reports a transaction the database rolled back to break
// a deadlock or a serialization conflict.
func TransactionAborted() *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConcurrentModification,
		Message:    "the operation collided with a concurrent change, retry it",
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// InvalidTransition reports a status change missing from the adjacency table.
func InvalidTransition(resource string, from, to fmt.Stringer) *AppError {
	return &AppError{
		Err:        ErrInvalidTransition,
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot move %s from %s to %s", resource, from, to),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"from": from.String(), "to": to.String()},
	}
}

// GuardViolation reports a failed transition precondition.
func GuardViolation(message string) *AppError {
	return &AppError{
		Err:        ErrGuardViolation,
		Code:       CodeGuardViolation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// InsufficientStock is a guard violation naming the line that cannot be served.
func InsufficientStock(message string) *AppError {
	e := GuardViolation(message)
	e.Code = CodeInsufficientStock
	return e
}

// OverReceipt is a guard violation raised when receiving more than was ordered.
func OverReceipt(message string) *AppError {
	e := GuardViolation(message)
	e.Code = CodeOverReceipt
	return e
}

// InvalidState is a guard violation raised when an operation is not allowed in the current status.
func InvalidState(message string) *AppError {
	e := GuardViolation(message)
	e.Code = CodeInvalidState
	return e
}

// InvariantViolation reports a write that would break a stored invariant, such as negative stock.
func InvariantViolation(message string) *AppError {
	return &AppError{
		Err:        ErrInvariantViolation,
		Code:       CodeInvariantViolation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// CodeOf returns the AppError code of err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsRejection reports whether err refused an operation on business grounds:
// a bad transition, a failed guard or invariant, or a lost version race.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrGuardViolation) ||
		errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrConflict)
}
