package connection

import "net/http"

// ApiError is the single error kind surfaced by the controller. It carries
// the HTTP status the routing layer should respond with, so callers can
// render consistent responses without inspecting error causes.
type ApiError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// NewApiError creates an ApiError with the given message and status code.
func NewApiError(message string, statusCode int) *ApiError {
	return &ApiError{Message: message, StatusCode: statusCode}
}

// newValidationError creates a 400 ApiError.
func newValidationError(message string) *ApiError {
	return NewApiError(message, http.StatusBadRequest)
}

func (e *ApiError) Error() string {
	return e.Message
}
