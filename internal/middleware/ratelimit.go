package middleware

import (
	"net/http"

	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/ratelimit"
)

// RateLimit applies the per-caller token bucket. Exhausted buckets get 429
// rate_limited. Must run after Authenticator so the caller key exists.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "missing_token")
				return
			}

			if d := limiter.Allow(ratelimit.UserKey(identity.UserID)); !d.Allowed {
				WriteError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
