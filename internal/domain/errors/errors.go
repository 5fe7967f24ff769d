package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every domain error matches exactly one of these with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrTransientIO   = errors.New("transient i/o error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
)

// Domain errors
var (
	ErrUnsupportedBank   = newKindError(ErrValidation, "unsupported bank")
	ErrInvalidBaseHash   = newKindError(ErrValidation, "invalid base hash")
	ErrAmountOutOfRange  = newKindError(ErrValidation, "amount out of range")
	ErrInvalidAmount     = newKindError(ErrValidation, "invalid amount")
	ErrRequestNotPending = newKindError(ErrConflict, "deposit request is not pending")
	ErrPaymentProcessed  = newKindError(ErrConflict, "incoming payment already processed")
	ErrDuplicatePayment  = newKindError(ErrConflict, "incoming payment already recorded")
	ErrBankNotConfigured = newKindError(ErrConfiguration, "bank is not configured")
	ErrBankDisabled      = newKindError(ErrConfiguration, "bank is disabled")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// Validation wraps a formatted message as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps a formatted message as a conflict error.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Configuration wraps a formatted message as a configuration error.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Transient marks err as a retryable i/o failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransientIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientIO, err)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientIO)
}

// Error codes returned to HTTP clients
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, ErrValidation)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// FromError maps a domain error onto its HTTP representation.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, err.Error(), err)
	case errors.Is(err, ErrValidation):
		return NewAppError(http.StatusBadRequest, CodeValidation, err.Error(), err)
	case errors.Is(err, ErrConflict):
		return NewAppError(http.StatusConflict, CodeConflict, err.Error(), err)
	case errors.Is(err, ErrConfiguration):
		return NewAppError(http.StatusUnprocessableEntity, CodeConfiguration, err.Error(), err)
	case errors.Is(err, ErrTransientIO):
		return NewAppError(http.StatusServiceUnavailable, CodeUnavailable, "temporarily unavailable", err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, err.Error(), err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, CodeForbidden, err.Error(), err)
	default:
		return InternalError(err)
	}
}
