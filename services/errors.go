package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	// Credential input failures (400)
	ErrorTypeDuplicateEmail    ErrorType = "duplicate_email"
	ErrorTypeWeakPassword      ErrorType = "weak_password"
	ErrorTypeUserNotFound      ErrorType = "user_not_found"
	ErrorTypeNoLocalCredential ErrorType = "no_local_credential"
	ErrorTypeInvalidCredential ErrorType = "invalid_credential"

	ErrorTypeSessionInvalid ErrorType = "session_invalid" // 401
	ErrorTypeActionDenied   ErrorType = "action_denied"   // 403
	ErrorTypeStoreError     ErrorType = "store_error"     // 500

	// Request level failures outside the auth taxonomy
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeExternal   ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same Type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error. Call it on a fresh error, never on
// one of the package level values.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// StatusCode returns the HTTP status for the error type
func (e *DomainError) StatusCode() int {
	switch e.Type {
	case ErrorTypeDuplicateEmail, ErrorTypeWeakPassword, ErrorTypeUserNotFound,
		ErrorTypeNoLocalCredential, ErrorTypeInvalidCredential, ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeSessionInvalid:
		return http.StatusUnauthorized
	case ErrorTypeActionDenied:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Messages rendered to clients
const (
	MsgDuplicateEmail    = "That email is already taken."
	MsgWeakPassword      = "The password needs to contain minimal 8 characters, atleast 1 number, atleast 1 letter and atleast 1 unique character !#$%?"
	MsgUserNotFound      = "User not found!"
	MsgNoLocalCredential = "No local account stored!"
	MsgInvalidCredential = "Password is incorrect!"
	MsgSessionInvalid    = "Session is no longer valid"
	MsgStoreError        = "Internal server error"
	msgActionDenied      = "Access Denied - You don't have permission to: "
)

// Domain error variables, for errors.Is comparisons
var (
	ErrDuplicateEmail    = NewDomainError(ErrorTypeDuplicateEmail, MsgDuplicateEmail, nil)
	ErrWeakPassword      = NewDomainError(ErrorTypeWeakPassword, MsgWeakPassword, nil)
	ErrUserNotFound      = NewDomainError(ErrorTypeUserNotFound, MsgUserNotFound, nil)
	ErrNoLocalCredential = NewDomainError(ErrorTypeNoLocalCredential, MsgNoLocalCredential, nil)
	ErrInvalidCredential = NewDomainError(ErrorTypeInvalidCredential, MsgInvalidCredential, nil)
	ErrSessionInvalid    = NewDomainError(ErrorTypeSessionInvalid, MsgSessionInvalid, nil)
	ErrStoreError        = NewDomainError(ErrorTypeStoreError, MsgStoreError, nil)
	ErrActionDenied      = NewDomainError(ErrorTypeActionDenied, "access denied", nil)

	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrRoomNotFound     = NewDomainError(ErrorTypeNotFound, "room not found", nil)
	ErrAlreadyMember    = NewDomainError(ErrorTypeConflict, "user is already a member of this room", nil)
	ErrNotMember        = NewDomainError(ErrorTypeNotFound, "user is not a member of this room", nil)
	ErrProviderDisabled = NewDomainError(ErrorTypeNotFound, "identity provider not configured", nil)
	ErrProviderFailure  = NewDomainError(ErrorTypeExternal, "identity provider request failed", nil)
)

// NewActionDenied returns the 403 error for a named action
func NewActionDenied(action string) *DomainError {
	return NewDomainError(ErrorTypeActionDenied, msgActionDenied+action, nil).WithDetail("action", action)
}

// NewStoreError wraps a credential store failure
func NewStoreError(op string, err error) *DomainError {
	return NewDomainError(ErrorTypeStoreError, MsgStoreError, fmt.Errorf("%s: %w", op, err))
}

// Error type checking helper functions

// IsCredentialError reports the 400-class credential input failures
func IsCredentialError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeDuplicateEmail, ErrorTypeWeakPassword, ErrorTypeUserNotFound,
		ErrorTypeNoLocalCredential, ErrorTypeInvalidCredential:
		return true
	}
	return false
}

// IsSessionInvalidError checks if an error is a session invalid error
func IsSessionInvalidError(err error) bool {
	return GetErrorType(err) == ErrorTypeSessionInvalid
}

// IsActionDeniedError checks if an error is an access denial
func IsActionDeniedError(err error) bool {
	return GetErrorType(err) == ErrorTypeActionDenied
}

// IsStoreError checks if an error is a store failure
func IsStoreError(err error) bool {
	return GetErrorType(err) == ErrorTypeStoreError
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}
