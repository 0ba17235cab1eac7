package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/storage"
)

// DefaultMaxSlipSize is the largest accepted payment slip.
const DefaultMaxSlipSize int64 = 5 << 20

// DefaultSlipExtensions are the accepted payment slip formats.
var DefaultSlipExtensions = []string{"png", "jpg", "jpeg", "pdf"}

var slipMIMETypes = map[string][]string{
	"png":  {"image/png"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"pdf":  {"application/pdf"},
}

type donationWriter interface {
	Create(ctx context.Context, donation *models.Donation) error
}

type stockDecrementer interface {
	Decrement(ctx context.Context, productID, qty int) error
}

type checkoutDonorReader interface {
	FindByID(ctx context.Context, donorID string) (*models.Donor, error)
}

type receiptIssuer interface {
	Issue(ctx context.Context, donation *models.Donation, donor *models.Donor) (*ReceiptLink, error)
}

type donationNotifier interface {
	DonationReceived(notice DonationNotice)
}

// CheckoutConfig carries upload limits and receipt numbering.
type CheckoutConfig struct {
	MaxSlipSize       int64
	AllowedExtensions []string
	ReceiptPrefix     string
}

// SlipUpload is the optional payment proof submitted with a confirmation.
type SlipUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ConfirmRequest is the checkout confirmation payload.
type ConfirmRequest struct {
	GrandTotal *decimal.Decimal
	Remarks    string
	Slip       *SlipUpload
}

// CheckoutService turns a pending cart into a recorded donation.
type CheckoutService struct {
	carts     *CartService
	donations donationWriter
	stock     stockDecrementer
	donors    checkoutDonorReader
	slips     storage.ObjectStore
	receipts  receiptIssuer
	notifier  donationNotifier
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	config    CheckoutConfig
	now       func() time.Time
}

// CheckoutDeps groups the collaborators of CheckoutService.
type CheckoutDeps struct {
	Carts     *CartService
	Donations donationWriter
	Stock     stockDecrementer
	Donors    checkoutDonorReader
	Slips     storage.ObjectStore
	Receipts  receiptIssuer
	Notifier  donationNotifier
	Cache     *CacheService
	Metrics   *MetricsService
}

// NewCheckoutService constructs the checkout service.
func NewCheckoutService(deps CheckoutDeps, logger *zap.Logger, config CheckoutConfig) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxSlipSize <= 0 {
		config.MaxSlipSize = DefaultMaxSlipSize
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = DefaultSlipExtensions
	}
	if config.ReceiptPrefix == "" {
		config.ReceiptPrefix = "HF"
	}
	return &CheckoutService{
		carts:     deps.Carts,
		donations: deps.Donations,
		stock:     deps.Stock,
		donors:    deps.Donors,
		slips:     deps.Slips,
		receipts:  deps.Receipts,
		notifier:  deps.Notifier,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Confirm records the donation for a Checkout-Pending cart. The slip is validated
// before anything is written. Stock failures after the donation is stored come
// back as warnings and never undo the donation.
func (s *CheckoutService) Confirm(ctx context.Context, key, donorID string, req ConfirmRequest) (*models.CheckoutResult, error) {
	cart, err := s.carts.Load(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	if cart.State != models.CartCheckoutPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidCartState, "cart is not awaiting checkout")
	}

	totals, err := s.carts.Totals(ctx, cart)
	if err != nil {
		return nil, err
	}
	if !totals.GrandTotal.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrEmptyDonation, "add a product or an amount before confirming")
	}
	if req.GrandTotal != nil && !req.GrandTotal.Round(2).Equal(totals.GrandTotal.Round(2)) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("grand total changed to %s; review the cart and confirm again", totals.GrandTotal.StringFixed(2)))
	}

	now := s.now().UTC()
	donorKey := donorID
	if donorKey == "" {
		donorKey = models.AnonymousDonorID
	}

	var slip *preparedSlip
	if req.Slip != nil && req.Slip.Content != nil {
		if slip, err = s.prepareSlip(req.Slip); err != nil {
			return nil, err
		}
	}

	donation := &models.Donation{
		DonorID:   donorKey,
		Amount:    totals.GrandTotal,
		Tax:       totals.Tax,
		Lines:     models.DonationLinesFrom(totals.Lines),
		Timestamp: now,
	}
	receiptNumber := NewReceiptNumber(s.config.ReceiptPrefix, now)
	donation.ReceiptNumber = &receiptNumber
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		donation.Remarks = &remarks
	}

	if slip != nil {
		name := fmt.Sprintf("payment_%s_%s.%s", donorKey, now.Format("20060102150405"), slip.ext)
		stored, putErr := s.slips.Put(ctx, name, bytes.NewReader(slip.data), slip.mime)
		if putErr != nil {
			return nil, appErrors.Wrap(putErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment slip")
		}
		donation.PaymentSlip = &stored
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		if donation.PaymentSlip != nil {
			if rmErr := s.slips.Remove(ctx, *donation.PaymentSlip); rmErr != nil {
				s.logger.Warn("failed to remove orphaned payment slip", zap.String("slip", *donation.PaymentSlip), zap.Error(rmErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record donation")
	}
	s.metrics.RecordDonation(donation.Amount)
	s.logger.Info("donation recorded",
		zap.Int64("donation_id", donation.ID),
		zap.String("donor_id", donation.DonorID),
		zap.String("amount", donation.Amount.StringFixed(2)),
		zap.String("receipt_number", receiptNumber),
	)

	warnings := s.applyStock(ctx, donation.ID, totals.Lines)

	if err := s.carts.Clear(ctx, key); err != nil {
		s.logger.Warn("failed to clear cart after checkout", zap.String("cart", key), zap.Error(err))
	}

	var donor *models.Donor
	if donorID != "" && s.donors != nil {
		if donor, err = s.donors.FindByID(ctx, donorID); err != nil {
			s.logger.Warn("failed to load donor after checkout", zap.String("donor_id", donorID), zap.Error(err))
			donor = nil
		}
	}

	result := &models.CheckoutResult{
		CartState:     models.CartSubmitted,
		Donation:      *donation,
		ReceiptNumber: receiptNumber,
		StockWarnings: warnings,
	}
	if s.receipts != nil {
		link, receiptErr := s.receipts.Issue(ctx, donation, donor)
		if receiptErr != nil {
			s.logger.Warn("failed to issue receipt", zap.Int64("donation_id", donation.ID), zap.Error(receiptErr))
		} else {
			result.ReceiptURL = link.URL
			result.Donation.ReceiptGenerated = donation.ReceiptGenerated
		}
	}

	if donor != nil && s.notifier != nil {
		s.notifier.DonationReceived(DonationNotice{
			DonorName:     donor.Name,
			Email:         donor.EmailAddress(),
			Phone:         donor.Phone,
			Amount:        donation.Amount,
			Date:          now,
			ReceiptNumber: receiptNumber,
		})
	}

	s.cache.InvalidateAnalytics(ctx)
	return result, nil
}

func (s *CheckoutService) applyStock(ctx context.Context, donationID int64, lines []models.CartLine) []models.StockWarning {
	var warnings []models.StockWarning
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		err := s.stock.Decrement(ctx, line.ProductID, line.Quantity)
		if err == nil {
			continue
		}
		message := "stock could not be updated"
		if errors.Is(err, repository.ErrInsufficientStock) {
			message = "insufficient stock"
		}
		warnings = append(warnings, models.StockWarning{ProductID: line.ProductID, Quantity: line.Quantity, Message: message})
		s.logger.Warn("stock decrement failed after donation",
			zap.Int64("donation_id", donationID),
			zap.Int("product_id", line.ProductID),
			zap.Int("quantity", line.Quantity),
			zap.Error(err),
		)
	}
	s.metrics.RecordStockWarnings(len(warnings))
	return warnings
}

type preparedSlip struct {
	data []byte
	ext  string
	mime string
}

func (s *CheckoutService) prepareSlip(upload *SlipUpload) (*preparedSlip, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), ".")
	if !s.extensionAllowed(ext) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("payment slip must be one of: %s", strings.Join(s.config.AllowedExtensions, ", ")))
	}
	if upload.Size > s.config.MaxSlipSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment slip exceeds %d MB", s.config.MaxSlipSize>>20))
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, s.config.MaxSlipSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read payment slip")
	}
	if int64(len(data)) > s.config.MaxSlipSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment slip exceeds %d MB", s.config.MaxSlipSize>>20))
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment slip is empty")
	}

	detected := mimetype.Detect(data)
	matched := false
	for _, want := range slipMIMETypes[ext] {
		if detected.Is(want) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment slip content does not match its extension")
	}
	return &preparedSlip{data: data, ext: ext, mime: detected.String()}, nil
}

func (s *CheckoutService) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	if _, known := slipMIMETypes[ext]; !known {
		return false
	}
	for _, allowed := range s.config.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}
