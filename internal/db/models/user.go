package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the gateway's view of the data store's user table. The table is
// owned by the identity stack; the gateway only reads the role column as
// the fallback when a credential carries no role claim.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk,type:uuid"`
	Email     string    `bun:"email,notnull,unique"`
	Name      string    `bun:"name"`
	Role      string    `bun:"role"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
