// Package errors provides centralized error definitions for the forwarder.
// Errors are organized by the stage of a run that produces them.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
//
// Fatal errors (configuration, resolution, rate limit) stop the run. Everything
// else raised while handling a single post is logged and the run moves on.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Startup errors. Both are raised before any message is sent.
var (
	// ErrConfiguration indicates invalid selection parameters, links or dates.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrResolution indicates a source or destination chat could not be resolved.
	ErrResolution = errors.New("cannot resolve chat")
)

// Transport errors.
var (
	// ErrRateLimited indicates the destination demanded a mandatory wait.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyResponse indicates a send call returned no message.
	ErrEmptyResponse = errors.New("empty response")

	// ErrMessageNotFound indicates a message could not be found.
	ErrMessageNotFound = errors.New("message not found")
)

// Per-post errors.
var (
	// ErrNoMedia indicates a media-bearing post ended up with nothing to upload.
	ErrNoMedia = errors.New("no media to send")

	// ErrDownloadFailed indicates source media bytes could not be fetched.
	ErrDownloadFailed = errors.New("download failed")

	// ErrUploadFailed indicates media could not be uploaded to the destination.
	ErrUploadFailed = errors.New("upload failed")

	// ErrUnexpectedMedia indicates the media payload did not match its kind.
	ErrUnexpectedMedia = errors.New("unexpected media shape")
)

// State errors.
var (
	// ErrStateCorrupted indicates the anchor state file is unreadable or malformed.
	ErrStateCorrupted = errors.New("state file corrupted")
)

// RateLimitError carries the wait the transport asked for.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: wait %s", e.Wait)
}

// Is reports ErrRateLimited as the sentinel of every RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is a convenience wrapper around errors.New.
func New(text string) error {
	return errors.New(text)
}
