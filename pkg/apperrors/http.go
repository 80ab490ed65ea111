package apperrors

import (
	"net/http"
)

// Code to HTTP status mapping.
var codeMapping = map[string]int{
	ErrInternal:        http.StatusInternalServerError,
	ErrNotFound:        http.StatusNotFound,
	ErrInvalidArgument: http.StatusBadRequest,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrUnauthorized:    http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrUpstream:        http.StatusInternalServerError,
}

// ToHTTPStatus converts an error code to its HTTP status.
func ToHTTPStatus(code string) int {
	if status, ok := codeMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusOf resolves any error to an HTTP status. Plain errors map to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if As(err, &appErr) {
		return ToHTTPStatus(appErr.Code())
	}
	return http.StatusInternalServerError
}

// MessageOf resolves the caller-facing message of any error. For plain
// errors a generic message is returned so internals are not leaked.
func MessageOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Message()
	}
	return "Internal server error"
}
