package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/service"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Uses a sliding window algorithm. This
// is the outer, pre-authentication backstop.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// KeyRateLimit returns an HTTP middleware that enforces each API key's own
// per-minute budget. It must run after Authenticate, since the budget lives
// on the key record. Admin sessions are not key-limited.
func KeyRateLimit(limiter *service.KeyLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || principal.Type != "api_key" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(principal.KeyID, principal.RateLimit) {
				retry := int(math.Ceil(limiter.Retry(principal.KeyID).Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeAuthError(w, http.StatusTooManyRequests, model.CodeRateLimited,
					"API key rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
