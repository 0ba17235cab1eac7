package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/export"
	"github.com/noah-isme/husma-donation-api/pkg/storage"
)

type receiptDonationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Donation, error)
	MarkReceiptGenerated(ctx context.Context, id int64) error
}

type receiptDonorRepository interface {
	FindByID(ctx context.Context, donorID string) (*models.Donor, error)
}

type receiptRenderer interface {
	Render(rc export.Receipt) ([]byte, error)
}

// ReceiptLink is a time-limited download reference.
type ReceiptLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReceiptDownload is an open receipt file ready to stream.
type ReceiptDownload struct {
	File     *os.File
	Filename string
	Size     int64
}

// ReceiptService renders donation receipts, keeps them on disk and signs download links.
type ReceiptService struct {
	donations  receiptDonationRepository
	donors     receiptDonorRepository
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	renderer   receiptRenderer
	publicPath string
	logger     *zap.Logger
}

// NewReceiptService constructs the receipt service. publicPath is the download route.
func NewReceiptService(donations receiptDonationRepository, donors receiptDonorRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, publicPath string, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		donations:  donations,
		donors:     donors,
		store:      store,
		signer:     signer,
		renderer:   export.NewReceiptRenderer(),
		publicPath: publicPath,
		logger:     logger,
	}
}

// Issue renders the receipt for a fresh donation and returns a signed link to it.
func (s *ReceiptService) Issue(ctx context.Context, donation *models.Donation, donor *models.Donor) (*ReceiptLink, error) {
	filename, err := s.render(ctx, donation, donor)
	if err != nil {
		return nil, err
	}
	return s.sign(donation.ID, filename)
}

// Link returns a signed link for an existing donation, re-rendering the file when it has been cleaned up.
// The stored line breakdown and tax make a re-rendered receipt match the original.
func (s *ReceiptService) Link(ctx context.Context, donationID int64) (*ReceiptLink, error) {
	donation, err := s.loadDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.ReceiptNumber == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "donation has no receipt")
	}
	filename := receiptFilename(*donation.ReceiptNumber)
	if _, statErr := os.Stat(s.store.Path(filename)); statErr != nil {
		if filename, err = s.render(ctx, donation, s.lookupDonor(ctx, donation.DonorID)); err != nil {
			return nil, err
		}
	}
	return s.sign(donation.ID, filename)
}

// Open validates a download token and opens the receipt it points at.
func (s *ReceiptService) Open(ctx context.Context, token string) (*ReceiptDownload, error) {
	rawID, filename, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired receipt link")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired receipt link")
	}

	file, err := s.store.Open(filename)
	if err != nil {
		donation, loadErr := s.loadDonation(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		if filename, err = s.render(ctx, donation, s.lookupDonor(ctx, donation.DonorID)); err != nil {
			return nil, err
		}
		if file, err = s.store.Open(filename); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open receipt")
		}
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat receipt")
	}
	return &ReceiptDownload{File: file, Filename: filename, Size: info.Size()}, nil
}

// Cleanup removes receipt files older than ttl.
func (s *ReceiptService) Cleanup(ttl time.Duration) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("receipt cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("receipts cleaned up", zap.Int("count", len(deleted)))
	}
}

func (s *ReceiptService) render(ctx context.Context, donation *models.Donation, donor *models.Donor) (string, error) {
	if donation.ReceiptNumber == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "donation has no receipt")
	}
	receipt := export.Receipt{
		Number:   *donation.ReceiptNumber,
		IssuedAt: donation.Timestamp,
		DonorID:  donation.DonorID,
		Amount:   donation.Amount,
		Tax:      donation.Tax,
	}
	if donor != nil {
		receipt.DonorName = donor.Name
		receipt.DonorNIC = donor.NIC
		receipt.DonorPhone = donor.Phone
	}
	if donation.Remarks != nil {
		receipt.Remarks = *donation.Remarks
	}
	for _, line := range donation.Lines {
		receipt.Lines = append(receipt.Lines, export.ReceiptLine{Name: line.Name, Quantity: line.Quantity, Subtotal: line.Subtotal})
	}

	pdf, err := s.renderer.Render(receipt)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := receiptFilename(receipt.Number)
	if _, err := s.store.Save(filename, pdf); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
	}
	if !donation.ReceiptGenerated {
		if err := s.donations.MarkReceiptGenerated(ctx, donation.ID); err != nil {
			s.logger.Warn("failed to flag receipt", zap.Int64("donation_id", donation.ID), zap.Error(err))
		} else {
			donation.ReceiptGenerated = true
		}
	}
	return filename, nil
}

func (s *ReceiptService) sign(donationID int64, filename string) (*ReceiptLink, error) {
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(donationID, 10), filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &ReceiptLink{URL: s.publicPath + "?token=" + url.QueryEscape(token), ExpiresAt: expiresAt}, nil
}

func (s *ReceiptService) loadDonation(ctx context.Context, id int64) (*models.Donation, error) {
	donation, err := s.donations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donation")
	}
	return donation, nil
}

func (s *ReceiptService) lookupDonor(ctx context.Context, donorID string) *models.Donor {
	if donorID == "" || donorID == models.AnonymousDonorID || s.donors == nil {
		return nil
	}
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil
	}
	return donor
}

func receiptFilename(number string) string {
	return fmt.Sprintf("receipt_%s.pdf", number)
}
