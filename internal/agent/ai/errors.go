package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// TimeoutError means the request exceeded its configured deadline. It is
// retryable: the conversation log was not modified, so the caller can
// resend as-is or with a longer timeout.
type TimeoutError struct {
	Configured time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"request timed out after %s; consider raising the request timeout, lowering max_tokens, or reducing the thinking budget",
		e.Configured,
	)
}

// Retryable reports that resending the same request may succeed.
func (e *TimeoutError) Retryable() bool { return true }

// ProviderError is any non-timeout failure from the API: auth, rate
// limits, overloaded, malformed request. Not retryable without
// operator action.
type ProviderError struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error { return e.cause }

func (e *ProviderError) Retryable() bool { return false }

// IsRateLimited reports whether the provider rejected the request for
// rate or quota reasons.
func (e *ProviderError) IsRateLimited() bool {
	return e.StatusCode == 429 || e.StatusCode == 529
}

// classify maps a transport or SDK error to the adapter's taxonomy.
func classify(err error, configured time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Configured: configured}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Configured: configured}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			cause:      err,
		}
	}
	return &ProviderError{Message: err.Error(), cause: err}
}
