package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

const (
	analyticsCachePrefix = "analytics"
	trendMonths          = 12
	rankingSize          = 10
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	DonationSummary(ctx context.Context) (models.DonationSummary, error)
	MonthlyTrend(ctx context.Context, months int) ([]models.MonthlyDonation, error)
	DonorRanking(ctx context.Context, limit int) ([]models.DonorRank, error)
	Distribution(ctx context.Context) (models.DistributionSummary, error)
}

type lowStockReader interface {
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
}

// AnalyticsService provides read-optimised access to the dashboard with cache integration.
type AnalyticsService struct {
	repo      AnalyticsRepository
	inventory lowStockReader
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, inventory lowStockReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, inventory: inventory, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Report returns the staff dashboard. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Report(ctx context.Context) (*models.AnalyticsReport, bool, error) {
	cacheKey := makeAnalyticsCacheKey("report")
	var cached models.AnalyticsReport
	if s.cache.Lookup(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	report := &models.AnalyticsReport{GeneratedAt: s.now().UTC()}
	var err error

	start := time.Now()
	if report.Summary, err = s.repo.DonationSummary(ctx); err != nil {
		return nil, false, analyticsError(err, "donation summary")
	}
	s.metrics.ObserveDBQuery("analytics_summary", time.Since(start))

	start = time.Now()
	if report.MonthlyTrend, err = s.repo.MonthlyTrend(ctx, trendMonths); err != nil {
		return nil, false, analyticsError(err, "monthly trend")
	}
	s.metrics.ObserveDBQuery("analytics_trend", time.Since(start))

	start = time.Now()
	if report.DonorRanking, err = s.repo.DonorRanking(ctx, rankingSize); err != nil {
		return nil, false, analyticsError(err, "donor ranking")
	}
	s.metrics.ObserveDBQuery("analytics_ranking", time.Since(start))

	start = time.Now()
	if report.Distribution, err = s.repo.Distribution(ctx); err != nil {
		return nil, false, analyticsError(err, "distribution")
	}
	s.metrics.ObserveDBQuery("analytics_distribution", time.Since(start))

	if s.inventory != nil {
		if report.LowStock, err = s.inventory.LowStock(ctx); err != nil {
			return nil, false, analyticsError(err, "low stock")
		}
	}
	if report.LowStock == nil {
		report.LowStock = []models.InventoryItem{}
	}

	s.cache.Store(ctx, cacheKey, report)
	return report, false, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func analyticsError(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString(analyticsCachePrefix)
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
