package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

const donorColumns = "donor_id, name, nic, phone, email, username, password, is_verified, created_at"

// DonorRepository manages persistence for donor records.
type DonorRepository struct {
	db *sqlx.DB
}

// NewDonorRepository constructs a DonorRepository.
func NewDonorRepository(db *sqlx.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// MaxDonorID returns the highest allocated identifier or "" when no donor exists.
// Ordering by length first keeps D1000 above D999.
func (r *DonorRepository) MaxDonorID(ctx context.Context) (string, error) {
	const query = "SELECT donor_id FROM donors ORDER BY LENGTH(donor_id) DESC, donor_id DESC LIMIT 1"
	var id string
	if err := r.db.GetContext(ctx, &id, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("max donor id: %w", err)
	}
	return id, nil
}

// Create inserts a donor. Unique violations surface as ErrDuplicateKey.
func (r *DonorRepository) Create(ctx context.Context, donor *models.Donor) error {
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO donors (` + donorColumns + `)
        VALUES (:donor_id, :name, :nic, :phone, :email, :username, :password, :is_verified, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donor); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create donor %s: %w", donor.DonorID, ErrDuplicateKey)
		}
		return fmt.Errorf("create donor: %w", err)
	}
	return nil
}

// FindByID fetches a donor by identifier.
func (r *DonorRepository) FindByID(ctx context.Context, donorID string) (*models.Donor, error) {
	return r.findOne(ctx, "donor_id", donorID)
}

// FindByUsername fetches a donor by username.
func (r *DonorRepository) FindByUsername(ctx context.Context, username string) (*models.Donor, error) {
	return r.findOne(ctx, "username", username)
}

// FindByEmail fetches a donor by email address.
func (r *DonorRepository) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	return r.findOne(ctx, "email", email)
}

func (r *DonorRepository) findOne(ctx context.Context, column, value string) (*models.Donor, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM donors WHERE %s = ? LIMIT 1", donorColumns, column))
	var donor models.Donor
	if err := r.db.GetContext(ctx, &donor, query, value); err != nil {
		return nil, err
	}
	return &donor, nil
}

// ExistsBy reports whether a donor with the given column value exists.
// Only username, email and nic are accepted.
func (r *DonorRepository) ExistsBy(ctx context.Context, column, value string) (bool, error) {
	switch column {
	case "username", "email", "nic":
	default:
		return false, fmt.Errorf("unsupported donor lookup column %q", column)
	}
	query := r.db.Rebind(fmt.Sprintf("SELECT 1 FROM donors WHERE %s = ? LIMIT 1", column))
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check donor %s: %w", column, err)
	}
	return true, nil
}

// List returns donors ordered by identifier.
func (r *DonorRepository) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR donor_id = ?"
		like := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, like, like, strings.ToUpper(filter.Search))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM donors%s ORDER BY LENGTH(donor_id), donor_id LIMIT %d OFFSET %d", donorColumns, where, size, offset))
	var donors []models.Donor
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list donors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM donors"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count donors: %w", err)
	}
	return donors, total, nil
}
