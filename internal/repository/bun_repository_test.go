package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/merchstats/reportgate/internal/db/bunx"
	"github.com/merchstats/reportgate/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database with the gateway tables
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunx.Close(db) })

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*models.User)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateTable().Model((*models.ReportAudit)(nil)).Exec(ctx)
	require.NoError(t, err)

	return db
}

func TestBunUserRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		ID:    uuid.NewString(),
		Email: "ops@example.com",
		Name:  "Ops Admin",
		Role:  "admin",
	}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	t.Run("existing user", func(t *testing.T) {
		retrieved, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, retrieved.ID)
		assert.Equal(t, "admin", retrieved.Role)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestBunReportAuditRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunReportAuditRepository(db)
	ctx := context.Background()

	record := &models.ReportAudit{
		RequestedBy: uuid.NewString(),
		ReportName:  "top_products",
		Params: models.ParamsMap{
			"start_date": "2024-01-01T00:00:00Z",
			"end_date":   "2024-01-07T23:59:59Z",
			"limit":      3,
		},
	}
	require.NoError(t, repo.Create(ctx, record))

	// Defaults are filled in
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "json", record.Format)
	assert.False(t, record.CreatedAt.IsZero())

	var stored models.ReportAudit
	err := db.NewSelect().Model(&stored).Where("id = ?", record.ID).Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "top_products", stored.ReportName)
	assert.Equal(t, "2024-01-01T00:00:00Z", stored.Params["start_date"])
}
