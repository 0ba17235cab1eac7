package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartState tracks where a session is in the checkout flow.
type CartState string

const (
	CartBrowsing        CartState = "BROWSING"
	CartCheckoutPending CartState = "CHECKOUT_PENDING"
	CartSubmitted       CartState = "SUBMITTED"
)

// Cart is the per-session basket. Lines hold quantities only; prices are
// resolved against the catalog whenever totals are computed.
type Cart struct {
	Key          string          `json:"key"`
	DonorID      string          `json:"donor_id,omitempty"`
	State        CartState       `json:"state"`
	Lines        map[int]int     `json:"lines"`
	DirectAmount decimal.Decimal `json:"direct_amount"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewCart returns an empty cart in the browsing state.
func NewCart(key, donorID string) *Cart {
	return &Cart{
		Key:          key,
		DonorID:      donorID,
		State:        CartBrowsing,
		Lines:        make(map[int]int),
		DirectAmount: decimal.Zero,
		UpdatedAt:    time.Now().UTC(),
	}
}

// CartLine is a priced view of one cart entry.
type CartLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartTotals is the computed breakdown for a cart.
type CartTotals struct {
	Lines        []CartLine      `json:"lines"`
	ItemsTotal   decimal.Decimal `json:"items_total"`
	DirectAmount decimal.Decimal `json:"direct_amount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Tax          decimal.Decimal `json:"tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// CartView is returned to clients: the cart state plus its current totals.
type CartView struct {
	State  CartState  `json:"state"`
	Totals CartTotals `json:"totals"`
}

// CheckoutResult is returned once a donation has been recorded.
type CheckoutResult struct {
	CartState     CartState      `json:"cart_state"`
	Donation      Donation       `json:"donation"`
	ReceiptNumber string         `json:"receipt_number"`
	ReceiptURL    string         `json:"receipt_url,omitempty"`
	StockWarnings []StockWarning `json:"stock_warnings,omitempty"`
}
