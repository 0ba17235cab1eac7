package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Donation is an immutable record written at checkout confirmation.
type Donation struct {
	ID               int64           `db:"id" json:"id"`
	DonorID          string          `db:"donor_id" json:"donor_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PaymentSlip      *string         `db:"payment_slip" json:"payment_slip,omitempty"`
	Timestamp        time.Time       `db:"timestamp" json:"timestamp"`
	ReceiptGenerated bool            `db:"receipt_generated" json:"receipt_generated"`
	ReceiptNumber    *string         `db:"receipt_number" json:"receipt_number,omitempty"`
	Remarks          *string         `db:"remarks" json:"remarks,omitempty"`
	Tax              decimal.Decimal `db:"tax" json:"tax"`
	Lines            DonationLines   `db:"line_items" json:"lines,omitempty"`
}

// DonationLine is one product bought with a donation, priced at checkout.
type DonationLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// DonationLines is stored as a JSON array in donations.line_items.
type DonationLines []DonationLine

// Value implements driver.Valuer.
func (l DonationLines) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal([]DonationLine(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *DonationLines) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan donation lines: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]DonationLine)(l))
}

// DonationLinesFrom keeps the cart lines that carry a quantity.
func DonationLinesFrom(lines []CartLine) DonationLines {
	var out DonationLines
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		out = append(out, DonationLine{ProductID: line.ProductID, Name: line.Name, Quantity: line.Quantity, Subtotal: line.Subtotal})
	}
	return out
}

// DonationWithDonor carries the donor display name for staff listings.
type DonationWithDonor struct {
	Donation
	DonorName string `db:"donor_name" json:"donor_name"`
}

// DonationFilter narrows staff donation listings.
type DonationFilter struct {
	DonorID  string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// DonationHistory is a donor's own contributions with their running total.
type DonationHistory struct {
	Donations []Donation      `json:"donations"`
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
}
