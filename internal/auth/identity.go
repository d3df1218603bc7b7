package auth

import "context"

// Identity captures caller metadata propagated through the request context.
// It is derived per request from a verified credential and never persisted
// by the gateway beyond the role cache.
type Identity struct {
	// UserID is the stable subject identifier assigned by the identity service.
	UserID string
	// Role is the role claim carried by the credential, empty when absent.
	Role string
	// IsAdmin is the authorization verdict resolved after verification.
	IsAdmin bool
}

type identityContextKey struct{}

// SetIdentityContext stores the verified identity on the context for downstream consumers.
func SetIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the verified identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
