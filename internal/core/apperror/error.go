// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError so callers can classify them by Kind.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse classification a caller uses to decide how to react.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindState         Kind = "state"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Configuration errors (5xx, operator action required)
	CodeDefaultCurrencyMissing = "DEFAULT_CURRENCY_MISSING"
	CodeDefaultTaxMissing      = "DEFAULT_TAX_MISSING"
	CodeBaseCurrencyMissing    = "BASE_CURRENCY_MISSING"
	CodeSystemLocationMissing  = "SYSTEM_LOCATION_MISSING"

	// Validation errors (400)
	CodeValidation          = "VALIDATION_ERROR"
	CodeNegativeTotal       = "NEGATIVE_TOTAL"
	CodeNonPositiveQuantity = "NON_POSITIVE_QUANTITY"
	CodeInvalidDiscount     = "INVALID_DISCOUNT"
	CodeSameLocation        = "SAME_LOCATION"
	CodeSerialCountMismatch = "SERIAL_COUNT_MISMATCH"

	// State errors (422)
	CodeNotInventoried         = "NOT_INVENTORIED"
	CodeMismatchedProduct      = "MISMATCHED_PRODUCT"
	CodeMismatchedCurrencyTax  = "MISMATCHED_CURRENCY_TAX"
	CodeSerialLocationMismatch = "SERIAL_LOCATION_MISMATCH"
	CodeSerialAlreadyTracked   = "SERIAL_ALREADY_TRACKED"
	CodeNotRemovable           = "NOT_REMOVABLE"
	CodeDocumentCompleted      = "DOCUMENT_COMPLETED"
	CodeNotReplaceable         = "NOT_REPLACEABLE"
	CodeStaleTotals            = "STALE_TOTALS"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// AppError is the standard error type for the platform.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// Kind classifies the error for callers
	Kind Kind `json:"kind"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewConfiguration creates a fatal configuration error (500).
// Not retried; an operator has to fix master data.
func NewConfiguration(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       KindConfiguration,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return NewValidationCode(CodeValidation, message)
}

// NewValidationCode creates a validation error with a specific code (400)
func NewValidationCode(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       KindValidation,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewState creates a state error (422): the request is well-formed but the
// referenced entities are not in a state that allows it.
func NewState(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       KindState,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		Kind:       KindNotFound,
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		Kind:       KindInternal,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewConcurrentModification creates an optimistic locking error (409)
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConfiguration checks if error is a configuration error
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}
