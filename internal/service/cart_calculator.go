package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

// DefaultTaxRate is the fixed 1% levy applied to every cart.
var DefaultTaxRate = decimal.RequireFromString("0.01")

// CartCalculator prices carts against the live catalog.
type CartCalculator struct {
	taxRate decimal.Decimal
}

// NewCartCalculator constructs a calculator. A negative rate falls back to DefaultTaxRate.
func NewCartCalculator(taxRate decimal.Decimal) *CartCalculator {
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &CartCalculator{taxRate: taxRate}
}

// ComputeTotal prices every line at the current catalog price, adds the direct
// amount and applies tax. Lines for products missing from catalog are ignored.
func (c *CartCalculator) ComputeTotal(lines map[int]int, catalog map[int]models.InventoryItem, direct decimal.Decimal) models.CartTotals {
	ids := make([]int, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	totals := models.CartTotals{
		Lines:        make([]models.CartLine, 0, len(ids)),
		ItemsTotal:   decimal.Zero,
		DirectAmount: decimal.Zero,
		TaxRate:      c.taxRate,
	}
	for _, id := range ids {
		item, ok := catalog[id]
		if !ok {
			continue
		}
		qty := lines[id]
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(qty)))
		totals.Lines = append(totals.Lines, models.CartLine{
			ProductID: id,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  qty,
			Subtotal:  subtotal,
		})
		totals.ItemsTotal = totals.ItemsTotal.Add(subtotal)
	}
	if direct.IsPositive() {
		totals.DirectAmount = direct
	}

	totals.Subtotal = totals.ItemsTotal.Add(totals.DirectAmount)
	totals.Tax = totals.Subtotal.Mul(c.taxRate).Round(2)
	totals.GrandTotal = totals.Subtotal.Add(totals.Tax)
	return totals
}
