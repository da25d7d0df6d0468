package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code, so that
// errors created with a contextual message still match the shared sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Validation error codes raised while mapping external payloads
const (
	CodeValidation = "VALIDATION"
)

// NewValidationError creates a validation error with a contextual message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// IsValidationError reports whether err is (or wraps) a validation error.
func IsValidationError(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == CodeValidation
}
