package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDonorID(t *testing.T) {
	cases := map[string]string{
		"":      "D001",
		"D001":  "D002",
		"D007":  "D008",
		"D099":  "D100",
		"D999":  "D1000",
		"D1000": "D1001",
	}
	for in, want := range cases {
		got, err := NextDonorID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNextDonorIDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"X001", "D", "Dabc", "D-1"} {
		_, err := NextDonorID(in)
		assert.Error(t, err, in)
	}
}

func TestNewReceiptNumberFormat(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	receipt := NewReceiptNumber("HF", now)

	assert.Regexp(t, regexp.MustCompile(`^HF20240309140507[0-9A-F]{6}$`), receipt)
	assert.NotEqual(t, receipt, NewReceiptNumber("HF", now))
}
