package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that wrapped and freshly constructed
// errors of the same kind compare equal under errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
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

// WrapDomainError creates a new domain error carrying an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes used across the receipt workflow
const (
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeRenderFailed         = "RENDER_FAILED"
	CodeArchiveFailed        = "ARCHIVE_FAILED"
	CodePersistenceFailed    = "PERSISTENCE_FAILED"
	CodeNumberSpaceExhausted = "NUMBER_SPACE_EXHAUSTED"
)

// Common domain errors
var (
	ErrUnauthorized         = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrNotFound             = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict             = NewDomainError(CodeConflict, "Operation conflicts with current resource state")
	ErrValidationFailed     = NewDomainError(CodeValidationFailed, "Input failed validation")
	ErrRenderFailed         = NewDomainError(CodeRenderFailed, "Document rendering failed")
	ErrArchiveFailed        = NewDomainError(CodeArchiveFailed, "Document archiving failed")
	ErrPersistenceFailed    = NewDomainError(CodePersistenceFailed, "Persisting state failed")
	ErrNumberSpaceExhausted = NewDomainError(CodeNumberSpaceExhausted, "Receipt number space exhausted")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidationFailed, message)
}

// NewConflictError creates a conflict error with a specific message
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewNotFoundError creates a not-found error naming the missing resource
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, resource+" not found")
}
