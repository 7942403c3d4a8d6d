package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// CodeRateLimitExceeded is the error code of every 429 response
const CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

// Throttle caps the total request rate of the process. It sits in front of
// the per-IP submission limiter and protects the email provider from bursts
// spread over many addresses.
func Throttle(rps float64, burst int) func(next http.Handler) http.Handler {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			if !limiter.AllowN(now, 1) {
				wait := time.Duration(float64(time.Second) / math.Max(rps, 0.001))
				WriteRateLimitError(w, burst, 0, now.Add(wait))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimitError writes a 429 Too Many Requests response with the
// X-RateLimit headers and a Retry-After rounded up to whole seconds
func WriteRateLimitError(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	retryAfter := int64(math.Ceil(time.Until(resetAt).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}

	SetRateLimitHeaders(w, limit, remaining, resetAt)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    CodeRateLimitExceeded,
			"message": "Too many requests. Please try again later.",
			"details": map[string][]string{
				"retry_after": {strconv.FormatInt(retryAfter, 10)},
			},
		},
		"timestamp": time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}

// SetRateLimitHeaders sets X-RateLimit-Limit, -Remaining and -Reset (unix seconds)
func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}
