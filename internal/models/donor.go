package models

import "time"

// AnonymousDonorID is stored on donations made without a signed-in donor.
const AnonymousDonorID = "anonymous"

// Donor is a registered contributor. DonorID follows the D### sequence.
type Donor struct {
	DonorID      string    `db:"donor_id" json:"donor_id"`
	Name         string    `db:"name" json:"name"`
	NIC          string    `db:"nic" json:"nic"`
	Phone        string    `db:"phone" json:"phone"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password" json:"-"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EmailAddress returns the email or an empty string.
func (d *Donor) EmailAddress() string {
	if d == nil || d.Email == nil {
		return ""
	}
	return *d.Email
}

// RegisterDonorRequest is the self-registration payload.
type RegisterDonorRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	NIC      string `json:"nic" validate:"required,nic"`
	Phone    string `json:"phone" validate:"required,lkphone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,strongpassword"`
}

// DonorFilter captures listing criteria for staff donor lookups.
type DonorFilter struct {
	Search   string
	Page     int
	PageSize int
}
