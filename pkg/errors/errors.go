// Package errors defines the API error taxonomy. Every failure that reaches a
// handler is an *Error carrying a stable code and the HTTP status to send.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a classified failure. Err keeps the underlying cause for logs and
// is never serialised.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an Error without a cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap classifies err under code and status.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinels. Use Clone or one of the constructors below to customise the
// message; never mutate these.
var (
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrStorage    = New("STORAGE_ERROR", http.StatusInternalServerError, "storage failure")

	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")

	ErrInternal  = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Validation reports rejected input. details maps field names to the rule
// they broke and may be nil.
func Validation(err error, message string, details map[string]string) *Error {
	if message == "" {
		message = ErrValidation.Message
	}
	e := Wrap(err, ErrValidation.Code, ErrValidation.Status, message)
	if len(details) > 0 {
		e.Details = details
	}
	return e
}

// NotFound reports a missing resource, e.g. NotFound("beneficiary").
func NotFound(resource string) *Error {
	return Clone(ErrNotFound, resource+" not found")
}

// Conflict reports a write that collided with existing state.
func Conflict(err error, message string) *Error {
	if message == "" {
		message = ErrConflict.Message
	}
	return Wrap(err, ErrConflict.Code, ErrConflict.Status, message)
}

// Storage wraps a driver failure. Callers only ever see message.
func Storage(err error, message string) *Error {
	if message == "" {
		message = ErrStorage.Message
	}
	return Wrap(err, ErrStorage.Code, ErrStorage.Status, message)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	var e *Error
	if target == nil || !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// FromError returns the *Error in err's chain, or ErrInternal wrapping err.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies err, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Details != nil {
		clone.Details = make(map[string]string, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}
