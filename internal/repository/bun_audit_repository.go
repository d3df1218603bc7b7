package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/merchstats/reportgate/internal/db/bunx"
	"github.com/merchstats/reportgate/internal/db/models"
)

// BunReportAuditRepository implements ReportAuditRepository using Bun ORM
type BunReportAuditRepository struct {
	db *bun.DB
}

// NewBunReportAuditRepository creates a new Bun-based audit repository
func NewBunReportAuditRepository(db *bun.DB) *BunReportAuditRepository {
	return &BunReportAuditRepository{db: db}
}

// Create inserts an audit record. Missing ID, format, and timestamp fields
// are filled in so callers only supply the request facts.
func (r *BunReportAuditRepository) Create(ctx context.Context, record *models.ReportAudit) error {
	if record.ID == "" {
		record.ID = bunx.NewUUIDv7()
	}
	if record.Format == "" {
		record.Format = "json"
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create report audit: %w", err)
	}
	return nil
}
