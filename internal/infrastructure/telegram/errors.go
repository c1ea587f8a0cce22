package telegram

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned by every call when no bot token is set.
var ErrNotConfigured = errors.New("telegram: bot token not configured")

// APIError represents a structured Telegram Bot API error response.
type APIError struct {
	ErrorCode   int
	Description string
	RetryAfter  int // seconds, only set with 429
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram API error %d: %s (retry_after=%ds)", e.ErrorCode, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram API error %d: %s", e.ErrorCode, e.Description)
}

// IsBotBlocked returns true if the error indicates the bot was blocked by the user (403).
func IsBotBlocked(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == http.StatusForbidden
	}
	return false
}

// IsRetryAfter returns true if the error is a 429 Too Many Requests with retry_after.
func IsRetryAfter(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == http.StatusTooManyRequests && apiErr.RetryAfter > 0
	}
	return false
}

// IsNotModified reports the harmless error returned when an edit leaves the
// message unchanged.
func IsNotModified(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == http.StatusBadRequest &&
			containsFold(apiErr.Description, "message is not modified")
	}
	return false
}
