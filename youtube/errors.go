package youtube

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for extractor operations.
var (
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrVideoUnavailable  = errors.New("youtube: video unavailable")
	ErrRateLimited       = errors.New("youtube: rate limited")
	ErrNetworkTimeout    = errors.New("youtube: network timeout")
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
)

// ExtractorError wraps errors from extractor invocations.
type ExtractorError struct {
	Op     string // "list", "probe", "download", "comments"
	Target string // channel name or video id
	Err    error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("extractor %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an extractor error is worth retrying.
// Unavailable content (private, removed, live), missing channels, a missing
// yt-dlp binary, and context errors are permanent; network failures, rate
// limits and timeouts are transient.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrVideoUnavailable),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrYtdlpNotInstalled):
		return false
	}
	return true
}
