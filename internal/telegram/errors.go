package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrEmptyResult is returned when the API reports success without a usable result.
var ErrEmptyResult = errors.New("telegram: empty result")

// IsRetryable reports whether a failed call may succeed if repeated:
// rate limiting, server errors and transport failures. Context
// cancellation and other API errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return !errors.Is(err, ErrEmptyResult)
}

// RetryAfter returns the flood-control delay the API asked for, or 0.
func RetryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}
