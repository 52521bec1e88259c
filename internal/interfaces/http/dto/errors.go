package dto

import "net/http"

// Error codes surfaced by the HTTP layer itself. Domain and application
// services carry their own codes; these cover request handling failures
// that never reach a service.
const (
	// ErrCodeBadRequest is used for malformed request bodies and parameters
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Request handling errors
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeInternal:   http.StatusInternalServerError,

	// Authentication errors -> 401 Unauthorized
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,
	"TOKEN_ERROR":         http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:  http.StatusNotFound,
	"USER_NOT_FOUND": http.StatusNotFound,
	"CONFLICT":       http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	"VALIDATION_FAILED": http.StatusUnprocessableEntity,

	// Downstream document pipeline failures -> 502 Bad Gateway
	"RENDER_FAILED":  http.StatusBadGateway,
	"ARCHIVE_FAILED": http.StatusBadGateway,

	// Infrastructure failures -> 500 Internal Server Error
	"PERSISTENCE_FAILED":     http.StatusInternalServerError,
	"NUMBER_SPACE_EXHAUSTED": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
