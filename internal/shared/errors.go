package shared

import (
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthExpired      = fmt.Errorf("authentication expired")

	// Resolution errors
	ErrNotFound         = fmt.Errorf("no catalog match")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Sync and persistence errors
	ErrRateLimited        = fmt.Errorf("rate limited by platform")
	ErrVerificationFailed = fmt.Errorf("verification failed")
	ErrPartialSync        = fmt.Errorf("partial sync failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// RateLimitError reports a throttling response from the external platform.
//
// RetryAfter is zero when the platform did not provide a hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by platform: retry after %s", e.RetryAfter)
	}
	return "rate limited by platform"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// PlatformError carries the raw status and message of a non-throttling platform failure.
type PlatformError struct {
	Status int
	Body   string
}

func (e *PlatformError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform error: status %d", e.Status)
	}
	return fmt.Sprintf("platform error: status %d: %s", e.Status, e.Body)
}

// PartialSyncError reports a batch operation where some items succeeded and others did not.
type PartialSyncError struct {
	Succeeded int
	Failed    int
	Err       error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("partial sync: %d succeeded, %d failed: %v", e.Succeeded, e.Failed, e.Err)
}

func (e *PartialSyncError) Unwrap() error { return ErrPartialSync }
