package vidvault

import (
	"vidvault/internal/retry"
	"vidvault/store"
	"vidvault/youtube"
)

// Error types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, vidvault.ErrChannelNotFound) {
//		fmt.Println("channel not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var extErr *vidvault.ExtractorError
//	if errors.As(err, &extErr) {
//		fmt.Printf("%s failed for %s: %v\n", extErr.Op, extErr.Target, extErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// ExtractorError wraps errors from the external extractor.
	ExtractorError = youtube.ExtractorError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during on-disk record operations.
	StorageError = store.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrChannelNotFound indicates the channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrVideoUnavailable indicates the item is private, deleted or gated.
	ErrVideoUnavailable = youtube.ErrVideoUnavailable
	// ErrRateLimited indicates the upstream throttled the operation.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrNetworkTimeout indicates a network timeout occurred.
	ErrNetworkTimeout = youtube.ErrNetworkTimeout
	// ErrYtdlpNotInstalled indicates the yt-dlp binary was not found.
	ErrYtdlpNotInstalled = youtube.ErrYtdlpNotInstalled

	// ErrNotFound indicates a record was not found on disk.
	ErrNotFound = store.ErrNotFound
	// ErrCorrupt indicates an on-disk record could not be decoded.
	ErrCorrupt = store.ErrCorrupt
)

// IsRetryable reports whether an extractor error is worth retrying.
// Permanent conditions like ErrVideoUnavailable return false.
func IsRetryable(err error) bool {
	return youtube.IsRetryable(err)
}
