package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

func testCatalog() map[int]models.InventoryItem {
	return map[int]models.InventoryItem{
		1: {ProductID: 1, Name: "Pediasure", Price: decimal.NewFromInt(3900), Stock: 50, MinStockLevel: 20},
		2: {ProductID: 2, Name: "Ensure", Price: decimal.NewFromInt(3500), Stock: 50, MinStockLevel: 20},
		3: {ProductID: 3, Name: "Sustagen", Price: decimal.NewFromInt(3200), Stock: 1, MinStockLevel: 20},
	}
}

func TestCartCalculatorComputeTotal(t *testing.T) {
	calc := NewCartCalculator(DefaultTaxRate)

	totals := calc.ComputeTotal(map[int]int{1: 2, 2: 1}, testCatalog(), decimal.Zero)

	assert.Equal(t, "11300.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "113.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "11413.00", totals.GrandTotal.StringFixed(2))
	assert.Len(t, totals.Lines, 2)
	assert.Equal(t, 1, totals.Lines[0].ProductID)
	assert.Equal(t, "7800", totals.Lines[0].Subtotal.String())
}

func TestCartCalculatorUsesCurrentPrice(t *testing.T) {
	calc := NewCartCalculator(DefaultTaxRate)
	catalog := testCatalog()
	lines := map[int]int{1: 1}

	before := calc.ComputeTotal(lines, catalog, decimal.Zero)
	item := catalog[1]
	item.Price = decimal.NewFromInt(4000)
	catalog[1] = item
	after := calc.ComputeTotal(lines, catalog, decimal.Zero)

	assert.Equal(t, "3939.00", before.GrandTotal.StringFixed(2))
	assert.Equal(t, "4040.00", after.GrandTotal.StringFixed(2))
}

func TestCartCalculatorDirectAmountAndEmptyCart(t *testing.T) {
	calc := NewCartCalculator(DefaultTaxRate)

	empty := calc.ComputeTotal(map[int]int{}, testCatalog(), decimal.Zero)
	assert.True(t, empty.GrandTotal.IsZero())
	assert.Empty(t, empty.Lines)

	direct := calc.ComputeTotal(map[int]int{}, testCatalog(), decimal.RequireFromString("1000.50"))
	assert.Equal(t, "1000.50", direct.Subtotal.StringFixed(2))
	assert.Equal(t, "10.01", direct.Tax.StringFixed(2))
	assert.Equal(t, "1010.51", direct.GrandTotal.StringFixed(2))

	negative := calc.ComputeTotal(map[int]int{}, testCatalog(), decimal.NewFromInt(-5))
	assert.True(t, negative.GrandTotal.IsZero())
}

func TestCartCalculatorSkipsUnknownProducts(t *testing.T) {
	calc := NewCartCalculator(DefaultTaxRate)

	totals := calc.ComputeTotal(map[int]int{1: 1, 99: 3, 2: 0}, testCatalog(), decimal.Zero)
	assert.Len(t, totals.Lines, 2)
	assert.Equal(t, "3900", totals.ItemsTotal.String())
}
