package services

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/ytmix/internal/shared"
)

// APIError is a failed call reported by the API either through the status code or an error body.
type APIError struct {
	Status  int
	Reason  string
	Message string
}

func newAPIError(status int, body apiErrorBody) *APIError {
	e := &APIError{Status: status}
	if body.Error != nil {
		e.Message = body.Error.Message
		if body.Error.Code != 0 {
			e.Status = body.Error.Code
		}
		if len(body.Error.Errors) > 0 {
			e.Reason = body.Error.Errors[0].Reason
		}
	}
	if e.Message == "" {
		e.Message = describeStatus(e.Status)
	}
	return e
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube API error (status %d, %s): %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube API error (status %d): %s", e.Status, e.Message)
}

// Unwrap exposes [shared.ErrAPIRequest], plus [shared.ErrTokenExpired] for 401s.
func (e *APIError) Unwrap() []error {
	if e.Status == http.StatusUnauthorized {
		return []error{shared.ErrAPIRequest, shared.ErrTokenExpired}
	}
	return []error{shared.ErrAPIRequest}
}

func describeStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication failed, sign in again"
	case http.StatusForbidden:
		return "access denied or quota exceeded"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusTooManyRequests:
		return "rate limit exceeded, try again later"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "server error, try again later"
	default:
		return http.StatusText(status)
	}
}
