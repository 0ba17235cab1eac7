package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/pkg/database"
)

// AnalyticsRepository exposes read-only aggregates over donations and issues.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// DonationSummary aggregates all donations. The anonymous sentinel never
// counts towards unique donors. An empty table yields zeros.
func (r *AnalyticsRepository) DonationSummary(ctx context.Context) (models.DonationSummary, error) {
	query := r.db.Rebind(`SELECT COUNT(*) AS donation_count,
        COALESCE(SUM(amount), 0) AS total_amount,
        COALESCE(AVG(amount), 0) AS average_donation,
        COUNT(DISTINCT CASE WHEN donor_id <> ? THEN donor_id END) AS unique_donors,
        COALESCE(MAX(amount), 0) AS largest_donation
        FROM donations`)
	var summary models.DonationSummary
	if err := r.db.GetContext(ctx, &summary, query, models.AnonymousDonorID); err != nil {
		return models.DonationSummary{}, fmt.Errorf("donation summary: %w", err)
	}
	return summary, nil
}

// MonthlyTrend groups donations by calendar month, most recent months first.
func (r *AnalyticsRepository) MonthlyTrend(ctx context.Context, months int) ([]models.MonthlyDonation, error) {
	if months <= 0 {
		months = 12
	}
	month := database.MonthExpr(r.db.DriverName(), "timestamp")
	query := fmt.Sprintf(`SELECT %s AS month, COALESCE(SUM(amount), 0) AS monthly_total, COUNT(*) AS donation_count
        FROM donations GROUP BY %s ORDER BY month DESC LIMIT %d`, month, month, months)
	trend := make([]models.MonthlyDonation, 0)
	if err := r.db.SelectContext(ctx, &trend, query); err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return trend, nil
}

// DonorRanking returns verified donors by lifetime total, including donors who
// have not donated yet.
func (r *AnalyticsRepository) DonorRanking(ctx context.Context, limit int) ([]models.DonorRank, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.Rebind(fmt.Sprintf(`SELECT d.donor_id, d.name,
        COALESCE(SUM(n.amount), 0) AS total_donated, COUNT(n.id) AS donation_count
        FROM donors d
        LEFT JOIN donations n ON n.donor_id = d.donor_id
        WHERE d.is_verified = ?
        GROUP BY d.donor_id, d.name
        ORDER BY total_donated DESC, d.donor_id ASC
        LIMIT %d`, limit))
	ranking := make([]models.DonorRank, 0)
	if err := r.db.SelectContext(ctx, &ranking, query, true); err != nil {
		return nil, fmt.Errorf("donor ranking: %w", err)
	}
	return ranking, nil
}

// Distribution counts children and issues, with issues broken down by supplement.
func (r *AnalyticsRepository) Distribution(ctx context.Context) (models.DistributionSummary, error) {
	summary := models.DistributionSummary{BySupplement: make([]models.SupplementIssueCount, 0)}
	if err := r.db.GetContext(ctx, &summary.Children, "SELECT COUNT(*) FROM children"); err != nil {
		return models.DistributionSummary{}, fmt.Errorf("count children: %w", err)
	}
	if err := r.db.GetContext(ctx, &summary.Issues, "SELECT COUNT(*) FROM issues"); err != nil {
		return models.DistributionSummary{}, fmt.Errorf("count issues: %w", err)
	}
	const query = `SELECT milk_type, COUNT(*) AS issue_count FROM issues GROUP BY milk_type ORDER BY issue_count DESC, milk_type`
	if err := r.db.SelectContext(ctx, &summary.BySupplement, query); err != nil {
		return models.DistributionSummary{}, fmt.Errorf("issues by supplement: %w", err)
	}
	return summary, nil
}
