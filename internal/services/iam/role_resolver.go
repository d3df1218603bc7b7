// Package iam resolves authorization verdicts for verified callers.
package iam

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/merchstats/reportgate/internal/repository"
)

const (
	// DefaultCacheTTL bounds how long a cached verdict may be served.
	DefaultCacheTTL = 60 * time.Second

	// cacheSize caps the number of cached verdicts; one entry per user.
	cacheSize = 4096
)

// Verdict is the cached authorization decision for a single user.
type Verdict struct {
	UserID  string
	Role    string
	IsAdmin bool
}

// Resolver determines whether a verified user has administrator privileges.
//
// Resolution order: fresh cache entry, role claim on the credential, a
// single user-table lookup. Lookup absence or failure degrades to
// non-admin; resolution itself never fails.
//
// The cache holds one entry per user with a fixed TTL; each fresh
// resolution overwrites the prior entry and an expired entry is never
// served. The expirable LRU serializes same-key access internally.
type Resolver struct {
	users repository.UserRepository
	cache *expirable.LRU[string, Verdict]
}

// NewResolver creates a role resolver backed by the given user repository.
// A non-positive ttl falls back to DefaultCacheTTL.
func NewResolver(users repository.UserRepository, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{
		users: users,
		cache: expirable.NewLRU[string, Verdict](cacheSize, nil, ttl),
	}
}

// Resolve returns the authorization verdict for a verified user, consulting
// at most one store lookup.
func (r *Resolver) Resolve(ctx context.Context, userID, claimedRole string) Verdict {
	if verdict, ok := r.cache.Get(userID); ok {
		return verdict
	}

	verdict := Verdict{UserID: userID}

	switch {
	case claimedRole != "":
		// The credential carries a role claim; no store lookup needed.
		verdict.Role = claimedRole
		verdict.IsAdmin = IsAdminRole(claimedRole)

	case r.users != nil:
		user, err := r.users.GetByID(ctx, userID)
		if err != nil {
			// Absence or lookup failure defaults to non-admin, never an error
			if !errors.Is(err, repository.ErrUserNotFound) {
				log.Printf("role resolver: user lookup for %s failed, treating as non-admin: %v", userID, err)
			}
		} else {
			verdict.Role = user.Role
			verdict.IsAdmin = IsAdminRole(user.Role)
		}
	}

	r.cache.Add(userID, verdict)
	return verdict
}

// Invalidate drops the cached verdict for a user, forcing the next Resolve
// to recompute.
func (r *Resolver) Invalidate(userID string) {
	r.cache.Remove(userID)
}

// IsAdminRole reports whether a role string grants administrator privileges.
func IsAdminRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin", "administrator":
		return true
	}
	return false
}
