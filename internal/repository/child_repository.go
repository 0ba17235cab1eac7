package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

const childColumns = "id, name, birthday, guardian, phone, milk_type, last_issue, created_at"

// ChildRepository manages beneficiaries and their supplement issues.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs a ChildRepository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// Create inserts a child and populates its generated ID.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	return insertChild(ctx, r.db, child)
}

// CreateWithIssue inserts a child and records its first issue in one
// transaction. When the issue fails the child is not kept.
func (r *ChildRepository) CreateWithIssue(ctx context.Context, child *models.Child, issue *models.Issue, allowNegative bool) (stockUpdated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin create child tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertChild(ctx, tx, child); err != nil {
		return false, err
	}
	issue.ChildID = child.ID
	if stockUpdated, err = recordIssue(ctx, tx, issue, allowNegative); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit create child: %w", err)
	}
	date := issue.Date
	child.LastIssue = &date
	return stockUpdated, nil
}

type rebindQueryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func insertChild(ctx context.Context, q rebindQueryer, child *models.Child) error {
	if child.CreatedAt.IsZero() {
		child.CreatedAt = time.Now().UTC()
	}
	query := q.Rebind(`INSERT INTO children (name, birthday, guardian, phone, milk_type, last_issue, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := q.QueryRowxContext(ctx, query,
		child.Name, child.Birthday, child.Guardian, child.Phone, child.MilkType, child.LastIssue, child.CreatedAt,
	).Scan(&child.ID); err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

// Update modifies the editable child fields. last_issue is owned by RecordIssue.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	query := r.db.Rebind(`UPDATE children SET name = ?, birthday = ?, guardian = ?, phone = ?, milk_type = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, child.Name, child.Birthday, child.Guardian, child.Phone, child.MilkType, child.ID)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a child together with every issue referencing it.
func (r *ChildRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete child tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM issues WHERE child_id = ?"), id); err != nil {
		return fmt.Errorf("delete child issues: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM children WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete child: %w", err)
	}
	return nil
}

// FindByID fetches a child by ID.
func (r *ChildRepository) FindByID(ctx context.Context, id int64) (*models.Child, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM children WHERE id = ?", childColumns))
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		return nil, err
	}
	return &child, nil
}

// List returns children whose name contains the search fragment, ordered by name.
func (r *ChildRepository) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM children WHERE LOWER(name) LIKE ? ORDER BY name", childColumns))
	children := make([]models.Child, 0)
	if err := r.db.SelectContext(ctx, &children, query, "%"+strings.ToLower(filter.Search)+"%"); err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// ListIssues returns a child's issues, newest date first.
func (r *ChildRepository) ListIssues(ctx context.Context, childID int64) ([]models.Issue, error) {
	query := r.db.Rebind("SELECT id, child_id, date, milk_type, quantity FROM issues WHERE child_id = ? ORDER BY date DESC, id DESC")
	issues := make([]models.Issue, 0)
	if err := r.db.SelectContext(ctx, &issues, query, childID); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// RecordIssue inserts the issue, moves the child's last_issue to its date and
// takes one unit off the matching product. A product name that matches nothing
// is skipped. With allowNegative false an empty product yields ErrInsufficientStock
// and nothing is written. The returned flag reports whether stock changed.
func (r *ChildRepository) RecordIssue(ctx context.Context, issue *models.Issue, allowNegative bool) (stockUpdated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin issue tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if stockUpdated, err = recordIssue(ctx, tx, issue, allowNegative); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit issue: %w", err)
	}
	return stockUpdated, nil
}

func recordIssue(ctx context.Context, tx *sqlx.Tx, issue *models.Issue, allowNegative bool) (bool, error) {
	if issue.Quantity <= 0 {
		issue.Quantity = 1
	}
	insert := tx.Rebind("INSERT INTO issues (child_id, date, milk_type, quantity) VALUES (?, ?, ?, ?) RETURNING id")
	if err := tx.QueryRowxContext(ctx, insert, issue.ChildID, issue.Date, issue.MilkType, issue.Quantity).Scan(&issue.ID); err != nil {
		return false, fmt.Errorf("insert issue: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE children SET last_issue = ? WHERE id = ?"), issue.Date, issue.ChildID); err != nil {
		return false, fmt.Errorf("update last issue: %w", err)
	}
	return decrementByName(ctx, tx, string(issue.MilkType), 1, allowNegative)
}

func decrementByName(ctx context.Context, tx *sqlx.Tx, name string, qty int, allowNegative bool) (bool, error) {
	query := "UPDATE inventory SET stock = stock - ? WHERE name = ?"
	args := []interface{}{qty, name}
	if !allowNegative {
		query += " AND stock >= ?"
		args = append(args, qty)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("decrement %s stock: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement %s rows: %w", name, err)
	}
	if n > 0 {
		return true, nil
	}
	if allowNegative {
		return false, nil
	}

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT 1 FROM inventory WHERE name = ? LIMIT 1"), name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lookup %s stock: %w", name, err)
	}
	return false, fmt.Errorf("decrement %s: %w", name, ErrInsufficientStock)
}

// Count returns the number of registered children.
func (r *ChildRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM children"); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return total, nil
}
