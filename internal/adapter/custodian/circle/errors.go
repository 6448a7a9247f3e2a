package circle

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Circle API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("circle: status %d", e.StatusCode)
	}
	return fmt.Sprintf("circle: status %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// HTTPStatusCode returns the response status.
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}
