package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary
// keys. Works on both PostgreSQL and SQLite, so no gen_random_uuid()
// dependency. Panics only on entropy exhaustion, at which point no ID
// generation can proceed anyway.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
