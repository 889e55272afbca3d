package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodePartial      ErrorCode = "PARTIAL"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors carrying the same code and message, so wrapped
// sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrDocumentNotFound   = NewError(ErrCodeNotFound, "document not found")
	ErrIdentityNotFound   = NewError(ErrCodeNotFound, "identity not found")
	ErrProfileNotFound    = NewError(ErrCodeNotFound, "profile not found")
	ErrFoodItemNotFound   = NewError(ErrCodeNotFound, "food item not found")
	ErrNgoNotFound        = NewError(ErrCodeNotFound, "ngo not found")
	ErrDonationNotFound   = NewError(ErrCodeNotFound, "donation not found")
	ErrSessionNotFound    = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "invalid email or password")
	ErrBadConfirmation    = NewError(ErrCodeUnauthorized, "incorrect admin confirmation")
	ErrForbidden          = NewError(ErrCodeForbidden, "forbidden")
	ErrEmailTaken         = NewError(ErrCodeConflict, "email already registered")
	ErrAlreadyAccepted    = NewError(ErrCodeConflict, "donation already accepted")
	ErrNgoNotApproved     = NewError(ErrCodeConflict, "ngo is not approved")
	ErrItemInProgress     = NewError(ErrCodeConflict, "item is already being donated")
	ErrInvalidPayload     = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// Invalid builds a validation error for the given field.
func Invalid(format string, args ...interface{}) *Error {
	return NewError(ErrCodeInvalid, fmt.Sprintf(format, args...))
}

// Unavailable classifies a failed call to a store or remote service.
func Unavailable(message string, err error) *Error {
	return WrapError(ErrCodeUnavailable, message, err)
}

// ErrNotificationFailed is the warning attached to an approval whose email could not be sent yet.
var ErrNotificationFailed = NewError(ErrCodePartial, "approved but notification failed")
