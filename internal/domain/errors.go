// File: internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for the boundary.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION"
	KindConflict        ErrorKind = "CONFLICT"
	KindRateLimited     ErrorKind = "RATE_LIMITED"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindExpired         ErrorKind = "EXPIRED"
	KindInvalid         ErrorKind = "INVALID"
	KindAuth            ErrorKind = "AUTH"
	KindDeliveryFailure ErrorKind = "DELIVERY_FAILURE"
	KindInternal        ErrorKind = "INTERNAL"
)

// ErrContactTaken is returned by stores when a unique contact column rejects a write.
var ErrContactTaken = errors.New("contact already in use")

// AuthError is a per-request failure with a machine-readable kind.
type AuthError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter int
	Cause      error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// HTTPStatus suggests the status code a boundary should render.
func (e *AuthError) HTTPStatus() int {
	return StatusForKind(e.Kind)
}

// NewError builds an AuthError without a cause.
func NewError(kind ErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// WrapError builds an AuthError around an underlying failure.
func WrapError(kind ErrorKind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind of err, defaulting to INTERNAL.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusForKind maps an error kind onto an HTTP status.
func StatusForKind(kind ErrorKind) int {
	switch kind {
	case KindValidation, KindNotFound, KindExpired, KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAuth:
		return http.StatusUnauthorized
	case KindDeliveryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
