package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is returned when retries are exhausted and nothing is cached for the request
var ErrRateLimited = errors.New("provider rate limit exceeded")

// RateLimitError is reported by a Transport when the provider rejects a call for rate reasons.
// RetryAfter is zero when the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s: %s", e.RetryAfter, e.Message)
	}
	return "rate limited: " + e.Message
}

// AsRateLimit unwraps err into a *RateLimitError
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
