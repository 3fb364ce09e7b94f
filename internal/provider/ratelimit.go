package provider

import (
	"net/http"
	"strconv"
	"time"

	"caprun/internal/resilience"
)

// now is swapped in tests to pin reset-hint arithmetic.
var now = time.Now

// RateLimited inspects an HTTP response's status and headers for backend
// rate limiting. It returns a resilience.RateLimitError carrying the reset
// hint when the response is rate limited, nil otherwise.
//
// Two shapes are recognized: a 429 with an optional Retry-After delay in
// seconds, and a 403 with X-RateLimit-Remaining exhausted, where
// X-RateLimit-Reset is an absolute unix timestamp.
func RateLimited(provider string, status int, h http.Header) error {
	switch status {
	case http.StatusTooManyRequests:
		return &resilience.RateLimitError{Provider: provider, RetryAfter: retryAfter(h)}
	case http.StatusForbidden:
		if h.Get("X-RateLimit-Remaining") == "0" {
			return &resilience.RateLimitError{Provider: provider, RetryAfter: untilReset(h)}
		}
	}
	return nil
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func untilReset(h http.Header) time.Duration {
	unix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0
	}
	d := time.Unix(unix, 0).Sub(now())
	if d < 0 {
		return 0
	}
	return d
}
