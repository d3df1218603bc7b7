package iam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchstats/reportgate/internal/db/models"
	"github.com/merchstats/reportgate/internal/repository"
)

// mockUserRepository counts lookups so tests can assert cache behavior.
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
	calls int
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestIsAdminRole(t *testing.T) {
	assert.True(t, IsAdminRole("admin"))
	assert.True(t, IsAdminRole("administrator"))
	assert.True(t, IsAdminRole("Admin"))
	assert.True(t, IsAdminRole(" ADMINISTRATOR "))
	assert.False(t, IsAdminRole(""))
	assert.False(t, IsAdminRole("user"))
	assert.False(t, IsAdminRole("admins"))
}

func TestResolver_ClaimPreferred(t *testing.T) {
	repo := &mockUserRepository{users: map[string]*models.User{}}
	resolver := NewResolver(repo, time.Minute)

	verdict := resolver.Resolve(context.Background(), "user-1", "admin")
	assert.True(t, verdict.IsAdmin)
	assert.Equal(t, "admin", verdict.Role)
	assert.Equal(t, 0, repo.callCount(), "a usable claim skips the store lookup")

	// Non-admin claim is equally usable: still no lookup
	verdict = resolver.Resolve(context.Background(), "user-2", "analyst")
	assert.False(t, verdict.IsAdmin)
	assert.Equal(t, 0, repo.callCount())
}

func TestResolver_StoreFallback(t *testing.T) {
	repo := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: "administrator"},
		"user-2": {ID: "user-2", Role: "viewer"},
	}}
	resolver := NewResolver(repo, time.Minute)

	assert.True(t, resolver.Resolve(context.Background(), "user-1", "").IsAdmin)
	assert.False(t, resolver.Resolve(context.Background(), "user-2", "").IsAdmin)
	assert.False(t, resolver.Resolve(context.Background(), "unknown", "").IsAdmin,
		"absent user defaults to non-admin")
}

func TestResolver_StoreFailureDegradesToNonAdmin(t *testing.T) {
	repo := &mockUserRepository{err: errors.New("connection refused")}
	resolver := NewResolver(repo, time.Minute)

	verdict := resolver.Resolve(context.Background(), "user-1", "")
	assert.False(t, verdict.IsAdmin)
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	repo := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: "admin"},
	}}
	resolver := NewResolver(repo, time.Minute)

	first := resolver.Resolve(context.Background(), "user-1", "")
	second := resolver.Resolve(context.Background(), "user-1", "")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.callCount(), "second resolution within TTL must not hit the store")
}

func TestResolver_ExpiredEntryRecomputed(t *testing.T) {
	repo := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: "admin"},
	}}
	resolver := NewResolver(repo, 20*time.Millisecond)

	require.True(t, resolver.Resolve(context.Background(), "user-1", "").IsAdmin)
	require.Equal(t, 1, repo.callCount())

	// Demote the user, then wait out the TTL
	repo.mu.Lock()
	repo.users["user-1"] = &models.User{ID: "user-1", Role: "viewer"}
	repo.mu.Unlock()
	time.Sleep(50 * time.Millisecond)

	assert.False(t, resolver.Resolve(context.Background(), "user-1", "").IsAdmin,
		"an entry is never served past its expiry")
	assert.Equal(t, 2, repo.callCount())
}

func TestResolver_Invalidate(t *testing.T) {
	repo := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: "admin"},
	}}
	resolver := NewResolver(repo, time.Minute)

	resolver.Resolve(context.Background(), "user-1", "")
	resolver.Invalidate("user-1")
	resolver.Resolve(context.Background(), "user-1", "")

	assert.Equal(t, 2, repo.callCount())
}
