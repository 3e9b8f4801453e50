package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wms-platform/promising-service/internal/domain"
)

// Standard error codes
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout                = "TIMEOUT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInsufficientSupply     = "INSUFFICIENT_SUPPLY"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Validation errors

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// Resource errors

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// Internal errors

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// Service errors

// ErrServiceUnavailable creates a service unavailable error
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// Allocation errors

// ErrConcurrentModification signals an optimistic-concurrency retry. Clients
// should re-submit the allocation request.
func ErrConcurrentModification(sku string) *AppError {
	return NewAppError(CodeConcurrentModification, "inventory position changed during allocation", http.StatusConflict).
		WithDetail("sku", sku).
		WithDetail("retryable", "true")
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Domain error mappings

// MapDomainError maps domain errors to AppErrors. Domain sentinels are
// matched with errors.Is so wrapped errors keep their transport code; only
// errors from outside the domain taxonomy fall back to message inspection.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	// Check if it's already an AppError
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrUnknownSKU):
		return ErrNotFound("sku").Wrap(err)
	case errors.Is(err, domain.ErrConcurrentModification):
		return NewAppError(CodeConcurrentModification, err.Error(), http.StatusConflict).
			WithDetail("retryable", "true").Wrap(err)
	case errors.Is(err, domain.ErrInsufficientUnlockedQty):
		return NewAppError(CodeInsufficientSupply, err.Error(), http.StatusConflict).
			WithDetail("retryable", "true").Wrap(err)
	case errors.Is(err, domain.ErrLockNotFound):
		return ErrNotFound("lock").Wrap(err)
	case errors.Is(err, domain.ErrShipmentNotFound):
		return ErrNotFound("shipment").Wrap(err)
	case errors.Is(err, domain.ErrRulesNotFound):
		return ErrNotFound("business rules").Wrap(err)
	case errors.Is(err, domain.ErrLockAlreadyReleased):
		return ErrConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrMissingOrderID):
		return ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrAdapterUnavailable):
		return ErrServiceUnavailable("inventory adapter").Wrap(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "timeout"):
		return ErrTimeout("operation").Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
