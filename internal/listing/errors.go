package listing

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors classify upstream failures. Callers branch with errors.Is;
// the feed layer reports the category on the per-source result.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrTransient         = errors.New("transient network failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamRejection = errors.New("upstream rejection")
	ErrServerFault       = errors.New("upstream server fault")
)

// RateLimitError carries the upstream retry-after hint alongside the
// ErrRateLimited sentinel.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// StatusError tags a failed response with its classified sentinel.
type StatusError struct {
	StatusCode int
	Category   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Category }

// classifyStatus maps an HTTP status to a sentinel category. 429 is handled
// separately so the retry-after hint is preserved.
func classifyStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case statusCode == http.StatusForbidden, statusCode == http.StatusNotFound:
		return ErrUpstreamRejection
	case statusCode >= 500:
		return ErrServerFault
	default:
		return ErrTransient
	}
}

// Terminal reports whether an error should not be retried within a fetch
// cycle (rejections and missing credentials; rate limits are governed by the
// backoff, not retried inline).
func Terminal(err error) bool {
	return errors.Is(err, ErrUpstreamRejection) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConfiguration)
}
