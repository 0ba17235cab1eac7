package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	donorIDPrefix        = "D"
	receiptTimeLayout    = "20060102150405"
	receiptSuffixBytes   = 3
	defaultReceiptPrefix = "HF"
)

// NextDonorID returns the identifier following max. An empty max starts the
// sequence at D001; past D999 the number simply grows (D1000).
func NextDonorID(max string) (string, error) {
	if max == "" {
		return formatDonorID(1), nil
	}
	if !strings.HasPrefix(max, donorIDPrefix) {
		return "", fmt.Errorf("malformed donor id %q", max)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(max, donorIDPrefix))
	if err != nil || n < 0 {
		return "", fmt.Errorf("malformed donor id %q", max)
	}
	return formatDonorID(n + 1), nil
}

func formatDonorID(n int) string {
	return fmt.Sprintf("%s%03d", donorIDPrefix, n)
}

// NewReceiptNumber renders prefix + 14 digit timestamp + 6 upper-case hex characters.
func NewReceiptNumber(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = defaultReceiptPrefix
	}
	buf := make([]byte, receiptSuffixBytes)
	if _, err := rand.Read(buf); err != nil {
		ns := now.UnixNano()
		buf[0], buf[1], buf[2] = byte(ns>>16), byte(ns>>8), byte(ns)
	}
	return prefix + now.Format(receiptTimeLayout) + strings.ToUpper(hex.EncodeToString(buf))
}
