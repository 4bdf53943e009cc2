// Package ratelimit retries classifications that fail because of provider quota exhaustion.
package ratelimit

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// DefaultCooldown is the fixed wait after a rate-limit error
const DefaultCooldown = 60 * time.Second

// BackoffFunc returns the wait before retry number attempt (1-based)
type BackoffFunc func(attempt int) time.Duration

// Policy decides whether and when a failed classification is retried
type Policy struct {
	// MaxAttempts caps total calls per message; 0 retries without bound
	MaxAttempts int
	Backoff     BackoffFunc
	Retryable   func(error) bool
}

// DefaultPolicy retries rate-limit errors forever with a fixed cooldown
func DefaultPolicy(cooldown time.Duration) Policy {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return Policy{
		MaxAttempts: 0,
		Backoff:     FixedBackoff(cooldown),
		Retryable:   IsRateLimit,
	}
}

// FixedBackoff waits d before every retry
func FixedBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return d
	}
}

// ExponentialBackoff doubles base on every retry up to max. A non-positive
// base falls back to DefaultCooldown; a non-positive max leaves the growth
// bounded only by the largest Duration.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	if base <= 0 {
		base = DefaultCooldown
	}
	limit := float64(math.MaxInt64)
	if max > 0 {
		limit = float64(max)
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := float64(base) * math.Pow(2, float64(attempt-1))
		if d >= limit {
			if max > 0 {
				return max
			}
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(d)
	}
}

var rateLimitMarkers = []string{
	"429",
	"quota exceeded",
	"resource exhausted",
	"resource_exhausted",
	"rate limit",
	"too many requests",
}

// IsRateLimit reports whether err signals quota exhaustion. Structured
// signals are checked first; the error text is the fallback.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrRateLimited) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
