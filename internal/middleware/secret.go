package middleware

import (
	"crypto/subtle"
	"net/http"
)

// SecretHeader carries the internal shared secret on gateway requests.
const SecretHeader = "x-reporting-secret"

// InternalSecret gates all non-preflight requests behind a shared secret
// header. A mismatch is 403 forbidden. The gate is disabled entirely when
// no secret is configured.
func InternalSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			provided := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
