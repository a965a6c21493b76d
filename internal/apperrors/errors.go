package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuthorization
	KindDependency
)

// Error is the application error carried across service boundaries.
// Code is a stable machine-readable identifier for clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller should back off and retry.
// Only conflicts (slot contention, lock timeouts) qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

func newError(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a validation error (malformed or missing input).
func Validationf(code, format string, args ...interface{}) *Error {
	return newError(KindValidation, code, format, args...)
}

// Conflictf creates a retryable conflict error (slot contention, lock timeout).
func Conflictf(code, format string, args ...interface{}) *Error {
	return newError(KindConflict, code, format, args...)
}

// NotFoundf creates a not-found error.
func NotFoundf(code, format string, args ...interface{}) *Error {
	return newError(KindNotFound, code, format, args...)
}

// Authorizationf creates an authorization error.
func Authorizationf(code, format string, args ...interface{}) *Error {
	return newError(KindAuthorization, code, format, args...)
}

// Dependencyf creates a side-channel dependency failure. These are logged
// server-side and never returned to the caller of the triggering request.
func Dependencyf(code, format string, args ...interface{}) *Error {
	return newError(KindDependency, code, format, args...)
}

// Wrap attaches an underlying cause to an application error.
func Wrap(err error, appErr *Error) *Error {
	appErr.Err = err
	return appErr
}

// KindOf extracts the Kind from any error chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// CodeOf extracts the stable error code, or empty string.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether any error in the chain is a retryable conflict.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return false
}

// HTTPStatus maps an error chain to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
