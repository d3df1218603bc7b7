package repository

import (
	"context"

	"github.com/merchstats/reportgate/internal/db/models"
)

// UserRepository exposes the read-only view of the user table consulted by
// the role resolver.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ReportAuditRepository exposes best-effort persistence of report request
// history.
type ReportAuditRepository interface {
	Create(ctx context.Context, record *models.ReportAudit) error
}
