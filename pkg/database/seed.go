package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Product is one catalog entry inserted on first startup.
type Product struct {
	ID            int
	Name          string
	Price         decimal.Decimal
	Stock         int
	MinStockLevel int
}

// ImagePath is the static asset reference for the product.
func (p Product) ImagePath() string {
	return fmt.Sprintf("static/images/%s.jpg", strings.ReplaceAll(strings.ToLower(p.Name), " ", "_"))
}

// DefaultProducts is the fixed supplement catalog.
var DefaultProducts = []Product{
	{ID: 1, Name: "Pediasure", Price: decimal.NewFromInt(3900), Stock: 50, MinStockLevel: 20},
	{ID: 2, Name: "Ensure", Price: decimal.NewFromInt(3500), Stock: 50, MinStockLevel: 20},
	{ID: 3, Name: "Sustagen", Price: decimal.NewFromInt(3200), Stock: 50, MinStockLevel: 20},
	{ID: 4, Name: "Pediasure Gold", Price: decimal.NewFromInt(4100), Stock: 50, MinStockLevel: 20},
	{ID: 5, Name: "Ensure Complete", Price: decimal.NewFromInt(3800), Stock: 50, MinStockLevel: 20},
	{ID: 6, Name: "Sustagen Junior", Price: decimal.NewFromInt(3000), Stock: 50, MinStockLevel: 20},
}

// SeedInventory inserts DefaultProducts when the inventory table is empty and
// reports how many rows were written.
func SeedInventory(ctx context.Context, db *sqlx.DB) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM inventory"); err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	if count > 0 {
		err = tx.Commit()
		return 0, err
	}

	query := tx.Rebind(`INSERT INTO inventory (product_id, name, price, stock, min_stock_level, image_path) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, p := range DefaultProducts {
		if _, err = tx.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Stock, p.MinStockLevel, p.ImagePath()); err != nil {
			return 0, fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(DefaultProducts), nil
}
