package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidParticipant marks a conversation key resolution that was handed an
// empty participant id. Fatal to the calling operation, never retried.
func InvalidParticipant(message string) *AppError {
	return &AppError{
		Code:    "INVALID_PARTICIPANT",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// VendorUnresolvable marks a deep-link target vendor that is missing or has
// no owning user. Surfaced to the user; session state is left unchanged.
func VendorUnresolvable(vendorID string, err error) *AppError {
	return &AppError{
		Code:    "VENDOR_UNRESOLVABLE",
		Message: fmt.Sprintf("Vendor %s could not be resolved", vendorID),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// StreamError marks a subscription-level transport failure. Always reported
// to the caller as data, never thrown across the subsystem boundary.
func StreamError(message string, err error) *AppError {
	return &AppError{
		Code:    "STREAM_ERROR",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// SendFailed marks a rejected or timed-out message send. Per-attempt; the
// caller keeps the typed text so the user can retry.
func SendFailed(message string, err error) *AppError {
	return &AppError{
		Code:    "SEND_FAILED",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
