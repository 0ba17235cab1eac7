package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

const donationColumns = "id, donor_id, amount, payment_slip, timestamp, receipt_generated, receipt_number, remarks, tax, line_items"

// DonationRepository persists donation records.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs a DonationRepository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a donation and populates its ID.
func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if donation.Timestamp.IsZero() {
		donation.Timestamp = time.Now().UTC()
	}
	if donation.DonorID == "" {
		donation.DonorID = models.AnonymousDonorID
	}
	query := r.db.Rebind(`INSERT INTO donations (donor_id, amount, payment_slip, timestamp, receipt_generated, receipt_number, remarks, tax, line_items)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query,
		donation.DonorID, donation.Amount, donation.PaymentSlip, donation.Timestamp,
		donation.ReceiptGenerated, donation.ReceiptNumber, donation.Remarks, donation.Tax, donation.Lines,
	).Scan(&donation.ID); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// FindByID fetches a donation by ID.
func (r *DonationRepository) FindByID(ctx context.Context, id int64) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.GetContext(ctx, &donation, r.db.Rebind("SELECT "+donationColumns+" FROM donations WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &donation, nil
}

// ListByDonor returns a donor's donations, newest first.
func (r *DonationRepository) ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	donations := make([]models.Donation, 0)
	query := r.db.Rebind("SELECT " + donationColumns + " FROM donations WHERE donor_id = ? ORDER BY timestamp DESC, id DESC")
	if err := r.db.SelectContext(ctx, &donations, query, donorID); err != nil {
		return nil, fmt.Errorf("list donor donations: %w", err)
	}
	return donations, nil
}

// List returns donations joined with the donor name, newest first. Donations
// without a matching donor are labelled Anonymous.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.DonorID != "" {
		conditions = append(conditions, "n.donor_id = ?")
		args = append(args, filter.DonorID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "n.timestamp >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "n.timestamp < ?")
		args = append(args, filter.DateTo.UTC())
	}
	base := "FROM donations n LEFT JOIN donors d ON d.donor_id = n.donor_id WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := r.db.Rebind(fmt.Sprintf(`SELECT n.id, n.donor_id, n.amount, n.payment_slip, n.timestamp, n.receipt_generated, n.receipt_number, n.remarks,
        n.tax, n.line_items, COALESCE(d.name, 'Anonymous') AS donor_name
        %s ORDER BY n.timestamp DESC, n.id DESC LIMIT %d OFFSET %d`, base, size, offset))
	donations := make([]models.DonationWithDonor, 0)
	if err := r.db.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list donations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+base), args...); err != nil {
		return nil, 0, fmt.Errorf("count donations: %w", err)
	}
	return donations, total, nil
}

// MarkReceiptGenerated flags that a receipt PDF exists for the donation.
func (r *DonationRepository) MarkReceiptGenerated(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE donations SET receipt_generated = ? WHERE id = ?"), true, id); err != nil {
		return fmt.Errorf("mark receipt generated: %w", err)
	}
	return nil
}
