package aigateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimited       = errors.New("ai gateway rate limit exceeded")
	ErrQuotaExceeded     = errors.New("ai gateway quota exceeded")
	ErrEmptyContent      = errors.New("no content in ai gateway response")
	ErrMalformedAnalysis = errors.New("malformed sentiment analysis")
)

// StatusError is returned for non-2xx responses other than 402 and 429.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai gateway returned status %d: %s", e.StatusCode, e.Body)
}

// rateLimitError carries the server's Retry-After hint for the retry loop.
type rateLimitError struct {
	retryAfter time.Duration
}

func (e *rateLimitError) Error() string {
	if e.retryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", ErrRateLimited, e.retryAfter)
	}
	return ErrRateLimited.Error()
}

func (e *rateLimitError) Is(target error) bool { return target == ErrRateLimited }

func (e *rateLimitError) RetryAfter() time.Duration { return e.retryAfter }
