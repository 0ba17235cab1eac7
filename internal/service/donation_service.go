package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/storage"
)

type donationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Donation, error)
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, int, error)
}

// DonationService serves the staff view of recorded donations.
type DonationService struct {
	repo   donationRepository
	slips  storage.ObjectStore
	logger *zap.Logger
}

// NewDonationService constructs the donation service.
func NewDonationService(repo donationRepository, slips storage.ObjectStore, logger *zap.Logger) *DonationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonationService{repo: repo, slips: slips, logger: logger}
}

// List returns donations, newest first, with pagination and the page total.
func (s *DonationService) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, *models.Pagination, decimal.Decimal, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 50
	}
	donations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
	}
	sum := decimal.Zero
	for _, d := range donations {
		sum = sum.Add(d.Amount)
	}
	return donations, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, sum, nil
}

// Get returns one donation.
func (s *DonationService) Get(ctx context.Context, id int64) (*models.Donation, error) {
	donation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation")
	}
	return donation, nil
}

// Slip loads the payment proof attached to a donation.
func (s *DonationService) Slip(ctx context.Context, id int64) (*ExportFile, error) {
	donation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if donation.PaymentSlip == nil || *donation.PaymentSlip == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "donation has no payment slip")
	}

	reader, err := s.slips.Get(ctx, *donation.PaymentSlip)
	if err != nil {
		s.logger.Warn("payment slip unavailable", zap.Int64("donation_id", id), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment slip not found")
	}
	defer reader.Close() //nolint:errcheck

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read payment slip")
	}
	return &ExportFile{
		Filename:    path.Base(*donation.PaymentSlip),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
