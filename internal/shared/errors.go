package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthRequired     = fmt.Errorf("authentication required")
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrExchangeFailed   = fmt.Errorf("authorization code exchange failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoUploads          = fmt.Errorf("no uploads playlist found")

	// Run outcomes
	ErrCancelled    = fmt.Errorf("operation cancelled")
	ErrNoChannels   = fmt.Errorf("no subscribed channels found")
	ErrNoVideos     = fmt.Errorf("no suitable videos found")
	ErrNoValidLinks = fmt.Errorf("no valid video links found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsCancelled reports whether err is a cancelled outcome, which callers keep out of error display.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// CancelledError normalizes the failure of a call whose context ended into an [ErrCancelled] outcome.
func CancelledError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, ErrCancelled) {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
