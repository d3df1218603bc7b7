package middleware

import (
	"net/http"

	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/services/iam"
)

// RequireAdmin resolves the caller's role and rejects non-administrators
// with 403 forbidden. The resolved verdict is folded back into the context
// identity so downstream consumers see the final IsAdmin flag.
//
// Must run after Authenticator.
func RequireAdmin(resolver *iam.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				// Authenticator did not run; treat as unauthenticated
				WriteError(w, http.StatusUnauthorized, "missing_token")
				return
			}

			verdict := resolver.Resolve(r.Context(), identity.UserID, identity.Role)
			if !verdict.IsAdmin {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}

			identity.IsAdmin = true
			if identity.Role == "" {
				identity.Role = verdict.Role
			}
			ctx := auth.SetIdentityContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
