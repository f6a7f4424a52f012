package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error response from the orchestration API
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	Body       string `json:"body"`
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("orchestrator error (status %d, request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("orchestrator error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed when sent again
func (e *Error) IsRetryable() bool {
	return e.IsServerError() || e.StatusCode == http.StatusTooManyRequests
}

func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *Error) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsNotFound reports whether err is an API error with status 404
func IsNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
