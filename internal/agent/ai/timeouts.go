package ai

import "time"

// Transport timeouts. The total request timeout is per-request and
// configurable; the rest derive from it or are fixed.
const (
	// DefaultRequestTimeout bounds one createMessage call end to end.
	DefaultRequestTimeout = 600 * time.Second

	// ConnectTimeout bounds TCP dial plus TLS handshake.
	ConnectTimeout = 30 * time.Second

	// WriteTimeout bounds sending the request body.
	WriteTimeout = 120 * time.Second

	// readTimeoutHeadroom is reserved for connect and write when the
	// proportional read share would leave less than that.
	readTimeoutHeadroom = 10 * time.Second
)

// ReadTimeout derives the response-read deadline from the total request
// timeout: 80% of the total, but never closer than ten seconds to it.
// Long thinking turns spend most of the budget waiting on first bytes,
// so read gets the bulk of it.
func ReadTimeout(total time.Duration) time.Duration {
	scaled := time.Duration(float64(total) * 0.8)
	capped := total - readTimeoutHeadroom
	read := scaled
	if capped < read {
		read = capped
	}
	if read < time.Second {
		read = time.Second
	}
	return read
}

// requestTimeout resolves the configured per-request timeout in seconds,
// falling back to the default when unset.
func requestTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(seconds) * time.Second
}
