package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationSummary aggregates every recorded donation.
type DonationSummary struct {
	Count        int64           `db:"donation_count" json:"donation_count"`
	Total        decimal.Decimal `db:"total_amount" json:"total_amount"`
	Average      decimal.Decimal `db:"average_donation" json:"average_donation"`
	UniqueDonors int64           `db:"unique_donors" json:"unique_donors"`
	Largest      decimal.Decimal `db:"largest_donation" json:"largest_donation"`
}

// MonthlyDonation is one calendar month bucket (YYYY-MM).
type MonthlyDonation struct {
	Month string          `db:"month" json:"month"`
	Total decimal.Decimal `db:"monthly_total" json:"monthly_total"`
	Count int64           `db:"donation_count" json:"donation_count"`
}

// DonorRank is a verified donor with their lifetime contribution.
type DonorRank struct {
	DonorID string          `db:"donor_id" json:"donor_id"`
	Name    string          `db:"name" json:"name"`
	Total   decimal.Decimal `db:"total_donated" json:"total_donated"`
	Count   int64           `db:"donation_count" json:"donation_count"`
}

// SupplementIssueCount counts issues per supplement type.
type SupplementIssueCount struct {
	MilkType SupplementType `db:"milk_type" json:"milk_type"`
	Issues   int64          `db:"issue_count" json:"issue_count"`
}

// DistributionSummary describes supplement hand-outs.
type DistributionSummary struct {
	Children     int64                  `json:"children"`
	Issues       int64                  `json:"issues"`
	BySupplement []SupplementIssueCount `json:"by_supplement"`
}

// AnalyticsReport bundles the staff dashboard.
type AnalyticsReport struct {
	Summary      DonationSummary     `json:"summary"`
	MonthlyTrend []MonthlyDonation   `json:"monthly_trend"`
	DonorRanking []DonorRank         `json:"donor_ranking"`
	Distribution DistributionSummary `json:"distribution"`
	LowStock     []InventoryItem     `json:"low_stock"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	DonationsRecorded        uint64    `json:"donations_recorded"`
	StockWarnings            uint64    `json:"stock_warnings"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
