package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

const inventoryColumns = "product_id, name, price, stock, min_stock_level, image_path, created_at"

// InventoryRepository manages product stock.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// List returns every product ordered by ID.
func (r *InventoryRepository) List(ctx context.Context) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0)
	if err := r.db.SelectContext(ctx, &items, "SELECT "+inventoryColumns+" FROM inventory ORDER BY product_id"); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

// LowStock returns products at or below their minimum level, emptiest first.
func (r *InventoryRepository) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0)
	query := "SELECT " + inventoryColumns + " FROM inventory WHERE stock <= min_stock_level ORDER BY stock, product_id"
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return items, nil
}

// FindByID fetches a product.
func (r *InventoryRepository) FindByID(ctx context.Context, productID int) (*models.InventoryItem, error) {
	var item models.InventoryItem
	query := r.db.Rebind("SELECT " + inventoryColumns + " FROM inventory WHERE product_id = ?")
	if err := r.db.GetContext(ctx, &item, query, productID); err != nil {
		return nil, err
	}
	return &item, nil
}

// Decrement subtracts qty from a product in one statement. With allowNegative
// false the update only applies while stock covers qty, otherwise
// ErrInsufficientStock is returned. Unknown products yield sql.ErrNoRows.
func (r *InventoryRepository) Decrement(ctx context.Context, productID, qty int, allowNegative bool) error {
	query := "UPDATE inventory SET stock = stock - ? WHERE product_id = ?"
	args := []interface{}{qty, productID}
	if !allowNegative {
		query += " AND stock >= ?"
		args = append(args, qty)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("decrement stock %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock %d rows: %w", productID, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.FindByID(ctx, productID); err != nil {
		return err
	}
	return fmt.Errorf("decrement stock %d: %w", productID, ErrInsufficientStock)
}

// Adjust applies a signed delta and returns the updated product.
func (r *InventoryRepository) Adjust(ctx context.Context, productID, delta int, allowNegative bool) (*models.InventoryItem, error) {
	query := "UPDATE inventory SET stock = stock + ? WHERE product_id = ?"
	args := []interface{}{delta, productID}
	if !allowNegative {
		query += " AND stock + ? >= 0"
		args = append(args, delta)
	}
	query += " RETURNING " + inventoryColumns

	var item models.InventoryItem
	if err := r.db.GetContext(ctx, &item, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) && !allowNegative {
			if _, findErr := r.FindByID(ctx, productID); findErr == nil {
				return nil, fmt.Errorf("adjust stock %d: %w", productID, ErrInsufficientStock)
			}
		}
		return nil, err
	}
	return &item, nil
}
