// Package validation holds the donor-facing field rules: Sri Lankan national
// identity numbers, local phone numbers, email addresses and password strength.
// Every check is pure and total and returns a human readable reason.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	ReasonValid          = "valid"
	ReasonNICInvalid     = "NIC must be 9 digits followed by V or X, or 12 digits"
	ReasonPhoneInvalid   = "Phone number must be exactly 10 digits"
	ReasonEmailInvalid   = "Email address is not valid"
	ReasonPasswordLength = "Password must be at least 8 characters"
	ReasonPasswordValid  = "Password is valid"

	// PasswordSpecialChars is the accepted special-character set.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

	minPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeNIC trims and upper-cases a national identity number.
func NormalizeNIC(nic string) string {
	return strings.ToUpper(strings.TrimSpace(nic))
}

// NormalizePhone removes surrounding whitespace, inner spaces and hyphens.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
}

// ValidateNIC accepts the old format (9 digits + V/X) and the new 12 digit format.
func ValidateNIC(nic string) (bool, string) {
	nic = NormalizeNIC(nic)
	switch len(nic) {
	case 10:
		if !allDigits(nic[:9]) {
			return false, ReasonNICInvalid
		}
		if last := nic[9]; last != 'V' && last != 'X' {
			return false, ReasonNICInvalid
		}
		return true, ReasonValid
	case 12:
		if !allDigits(nic) {
			return false, ReasonNICInvalid
		}
		return true, ReasonValid
	default:
		return false, ReasonNICInvalid
	}
}

// ValidatePhone accepts exactly ten digits once separators are removed.
func ValidatePhone(phone string) (bool, string) {
	phone = NormalizePhone(phone)
	if len(phone) != 10 || !allDigits(phone) {
		return false, ReasonPhoneInvalid
	}
	return true, ReasonValid
}

// ValidateEmail matches local-part@domain.tld.
func ValidateEmail(email string) (bool, string) {
	if !emailPattern.MatchString(email) {
		return false, ReasonEmailInvalid
	}
	return true, ReasonValid
}

// ValidatePasswordStrength reports the first unmet requirement in the order
// length, uppercase, lowercase, digit, special character.
func ValidatePasswordStrength(password string) (bool, string) {
	if len([]rune(password)) < minPasswordLength {
		return false, ReasonPasswordLength
	}

	checks := []struct {
		requirement string
		match       func(rune) bool
	}{
		{"uppercase letter", func(r rune) bool { return r >= 'A' && r <= 'Z' }},
		{"lowercase letter", func(r rune) bool { return r >= 'a' && r <= 'z' }},
		{"digit", unicode.IsDigit},
		{"special character", func(r rune) bool { return strings.ContainsRune(PasswordSpecialChars, r) }},
	}
	for _, check := range checks {
		if !strings.ContainsFunc(password, check.match) {
			return false, "Password must contain at least one " + check.requirement
		}
	}
	return true, ReasonPasswordValid
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
