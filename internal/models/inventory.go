package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the human label for an inventory level.
type StockStatus string

const (
	StockOutOfStock StockStatus = "Out of Stock"
	StockCritical   StockStatus = "Critical"
	StockLow        StockStatus = "Low"
	StockInStock    StockStatus = "In Stock"
)

// StockStatusFor classifies stock against the critical floor and the product's own minimum.
func StockStatusFor(stock, minStockLevel, critical int) StockStatus {
	switch {
	case stock <= 0:
		return StockOutOfStock
	case stock <= critical:
		return StockCritical
	case stock <= minStockLevel:
		return StockLow
	default:
		return StockInStock
	}
}

// InventoryItem is a catalog product with its stock counter.
type InventoryItem struct {
	ProductID     int             `db:"product_id" json:"product_id"`
	Name          string          `db:"name" json:"name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Stock         int             `db:"stock" json:"stock"`
	MinStockLevel int             `db:"min_stock_level" json:"min_stock_level"`
	ImagePath     *string         `db:"image_path" json:"image_path,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// CatalogItem is an inventory row decorated for donors.
type CatalogItem struct {
	InventoryItem
	Status      StockStatus `json:"status"`
	MaxQuantity int         `json:"max_quantity"`
}

// StockAdjustment is a signed manual correction applied by staff.
type StockAdjustment struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// StockWarning reports a cart line whose stock decrement did not apply.
type StockWarning struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message"`
}
