package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

type donorRepository interface {
	FindByID(ctx context.Context, donorID string) (*models.Donor, error)
	List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, int, error)
}

type donorDonationRepository interface {
	ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error)
}

// DonorService serves donor profiles and donation history.
type DonorService struct {
	donors    donorRepository
	donations donorDonationRepository
	logger    *zap.Logger
}

// NewDonorService constructs the donor service.
func NewDonorService(donors donorRepository, donations donorDonationRepository, logger *zap.Logger) *DonorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonorService{donors: donors, donations: donations, logger: logger}
}

// Get returns one donor by identifier.
func (s *DonorService) Get(ctx context.Context, donorID string) (*models.Donor, error) {
	donorID = strings.ToUpper(strings.TrimSpace(donorID))
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}
	return donor, nil
}

// List returns donors and pagination metadata.
func (s *DonorService) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, *models.Pagination, error) {
	donors, total, err := s.donors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donors")
	}
	return donors, paginate(filter.Page, filter.PageSize, total), nil
}

// History returns the donor's donations, newest first, with their total.
func (s *DonorService) History(ctx context.Context, donorID string) (*models.DonationHistory, error) {
	donations, err := s.donations.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation history")
	}
	total := decimal.Zero
	for _, d := range donations {
		total = total.Add(d.Amount)
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	return &models.DonationHistory{Donations: donations, Total: total, Count: len(donations)}, nil
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
