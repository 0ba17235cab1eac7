package models

import "time"

// SupplementType names one of the six catalog products a child can receive.
type SupplementType string

const (
	SupplementPediasure      SupplementType = "Pediasure"
	SupplementEnsure         SupplementType = "Ensure"
	SupplementSustagen       SupplementType = "Sustagen"
	SupplementPediasureGold  SupplementType = "Pediasure Gold"
	SupplementEnsureComplete SupplementType = "Ensure Complete"
	SupplementSustagenJunior SupplementType = "Sustagen Junior"
)

// SupplementTypes lists every known supplement in catalog order.
var SupplementTypes = []SupplementType{
	SupplementPediasure,
	SupplementEnsure,
	SupplementSustagen,
	SupplementPediasureGold,
	SupplementEnsureComplete,
	SupplementSustagenJunior,
}

// Valid reports whether t is a known supplement.
func (t SupplementType) Valid() bool {
	for _, known := range SupplementTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Child is a beneficiary registered by staff.
type Child struct {
	ID        int64          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Birthday  *time.Time     `db:"birthday" json:"birthday,omitempty"`
	Guardian  string         `db:"guardian" json:"guardian"`
	Phone     string         `db:"phone" json:"phone"`
	MilkType  SupplementType `db:"milk_type" json:"milk_type"`
	LastIssue *time.Time     `db:"last_issue" json:"last_issue,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Issue records one supplement hand-out to a child.
type Issue struct {
	ID       int64          `db:"id" json:"id"`
	ChildID  int64          `db:"child_id" json:"child_id"`
	Date     time.Time      `db:"date" json:"date"`
	MilkType SupplementType `db:"milk_type" json:"milk_type"`
	Quantity int            `db:"quantity" json:"quantity"`
}

// ChildFilter narrows child listings by a case-insensitive name fragment.
type ChildFilter struct {
	Search string
}

// ChildRequest is the staff payload for creating or editing a child.
// Birthday uses the YYYY-MM-DD layout.
type ChildRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	Birthday   string         `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Guardian   string         `json:"guardian" validate:"required,max=200"`
	Phone      string         `json:"phone" validate:"required,lkphone"`
	MilkType   SupplementType `json:"milk_type" validate:"required"`
	IssueToday bool           `json:"issue_today"`
}

// IssueRequest records a hand-out. Empty fields default to today and the child's supplement.
type IssueRequest struct {
	Date     string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	MilkType SupplementType `json:"milk_type"`
}

// IssueResult reports the stored issue and whether a product's stock moved.
type IssueResult struct {
	Issue        Issue `json:"issue"`
	StockUpdated bool  `json:"stock_updated"`
}
