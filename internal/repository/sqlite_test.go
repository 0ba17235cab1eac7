package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/pkg/config"
	"github.com/noah-isme/husma-donation-api/pkg/database"
)

func newSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "husma.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db, config.DriverSQLite))
	_, err = database.SeedInventory(ctx, db)
	require.NoError(t, err)
	return db
}

func TestSQLiteChildCreateWithIssue(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	children := NewChildRepository(db)
	inventory := NewInventoryRepository(db)
	today := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	child := &models.Child{Name: "Nimal", Guardian: "Kamala", Phone: "0712345678", MilkType: models.SupplementPediasure}
	issue := &models.Issue{Date: today, MilkType: models.SupplementPediasure}
	updated, err := children.CreateWithIssue(ctx, child, issue, false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NotZero(t, child.ID)
	assert.Equal(t, child.ID, issue.ChildID)

	stored, err := children.FindByID(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastIssue)
	assert.Equal(t, "2025-03-14", stored.LastIssue.Format("2006-01-02"))
	pediasure, err := inventory.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 49, pediasure.Stock)

	t.Run("empty product keeps no child", func(t *testing.T) {
		_, err := inventory.Adjust(ctx, 3, -50, false)
		require.NoError(t, err)

		orphan := &models.Child{Name: "Kasun", Guardian: "Sunil", Phone: "0771234567", MilkType: models.SupplementSustagen}
		_, err = children.CreateWithIssue(ctx, orphan, &models.Issue{Date: today, MilkType: models.SupplementSustagen}, false)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		count, err := children.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		issues, err := children.ListIssues(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})
}

func TestSQLiteDonationsAndAnalytics(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	donors := NewDonorRepository(db)
	donations := NewDonationRepository(db)
	analytics := NewAnalyticsRepository(db)

	for _, d := range []*models.Donor{
		{DonorID: "D999", Name: "Alice", NIC: "199012345678", Phone: "0771234567", Username: "alice", PasswordHash: "x$y", IsVerified: true},
		{DonorID: "D1000", Name: "Bimal", NIC: "123456789V", Phone: "0772345678", Username: "bimal", PasswordHash: "x$y", IsVerified: true},
	} {
		require.NoError(t, donors.Create(ctx, d))
	}
	maxID, err := donors.MaxDonorID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "D1000", maxID)

	march := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	february := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	named := &models.Donation{
		DonorID:   "D999",
		Amount:    decimal.RequireFromString("5000"),
		Tax:       decimal.RequireFromString("49.50"),
		Lines:     models.DonationLines{{ProductID: 1, Name: "Pediasure", Quantity: 1, Subtotal: decimal.NewFromInt(3900)}},
		Timestamp: march,
	}
	require.NoError(t, donations.Create(ctx, named))
	require.NoError(t, donations.Create(ctx, &models.Donation{Amount: decimal.NewFromInt(1000), Timestamp: february}))
	require.NoError(t, donations.Create(ctx, &models.Donation{Amount: decimal.NewFromInt(2000), Timestamp: march}))

	loaded, err := donations.FindByID(ctx, named.ID)
	require.NoError(t, err)
	assert.Equal(t, "49.50", loaded.Tax.StringFixed(2))
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, "Pediasure", loaded.Lines[0].Name)
	assert.Equal(t, "3900.00", loaded.Lines[0].Subtotal.StringFixed(2))

	summary, err := analytics.DonationSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	assert.Equal(t, "8000.00", summary.Total.StringFixed(2))
	assert.Equal(t, int64(1), summary.UniqueDonors)
	assert.Equal(t, "5000.00", summary.Largest.StringFixed(2))

	trend, err := analytics.MonthlyTrend(ctx, 12)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, "2025-03", trend[0].Month)
	assert.Equal(t, "7000.00", trend[0].Total.StringFixed(2))
	assert.Equal(t, int64(2), trend[0].Count)
	assert.Equal(t, "2025-02", trend[1].Month)

	ranking, err := analytics.DonorRanking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, "D999", ranking[0].DonorID)
	assert.Equal(t, "D1000", ranking[1].DonorID)
	assert.True(t, ranking[1].Total.IsZero())

	listed, total, err := donations.List(ctx, models.DonationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 3)
	assert.Equal(t, "Anonymous", listed[len(listed)-1].DonorName)
}
