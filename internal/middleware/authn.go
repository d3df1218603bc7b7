package middleware

import (
	"net/http"

	"github.com/merchstats/reportgate/internal/auth"
)

// Authenticator verifies the bearer credential on every request and stores
// the resulting identity on the context.
//
// Responses: 401 missing_token when no Authorization header is present,
// 401 invalid_token when the header is malformed or the credential is
// rejected. Malformed input is an expected outcome, not a server fault.
func Authenticator(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, http.StatusUnauthorized, "missing_token")
				return
			}

			identity, err := verifier.Verify(r.Context(), header)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "invalid_token")
				return
			}

			ctx := auth.SetIdentityContext(r.Context(), *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
