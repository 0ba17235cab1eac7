package service

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/export"
	"github.com/noah-isme/husma-donation-api/pkg/storage"
)

func newTestReceiptService(t *testing.T) (*ReceiptService, *fakeDonationStore, *storage.LocalStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	donations := &fakeDonationStore{}
	signer := storage.NewSignedURLSigner("receipt-secret", time.Hour)
	svc := NewReceiptService(donations, newFakeDonorRepo(existingDonor(t)), local, signer, "/api/v1/receipts/download", zap.NewNop())
	return svc, donations, local
}

func storedDonation(t *testing.T, store *fakeDonationStore, number string) *models.Donation {
	t.Helper()
	donation := &models.Donation{
		DonorID:       "D001",
		Amount:        decimal.RequireFromString("11413.00"),
		Timestamp:     time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		ReceiptNumber: &number,
		Tax:           decimal.RequireFromString("113.00"),
		Lines: models.DonationLines{
			{ProductID: 1, Name: "Pediasure", Quantity: 2, Subtotal: decimal.NewFromInt(7800)},
			{ProductID: 2, Name: "Ensure", Quantity: 1, Subtotal: decimal.NewFromInt(3500)},
		},
	}
	require.NoError(t, store.Create(context.Background(), donation))
	return donation
}

func tokenFrom(t *testing.T, link *ReceiptLink) string {
	t.Helper()
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

type recordingRenderer struct {
	inner    *export.ReceiptRenderer
	receipts []export.Receipt
}

func (r *recordingRenderer) Render(rc export.Receipt) ([]byte, error) {
	r.receipts = append(r.receipts, rc)
	return r.inner.Render(rc)
}

func TestReceiptServiceIssueAndOpen(t *testing.T) {
	svc, donations, local := newTestReceiptService(t)
	donation := storedDonation(t, donations, "HF20250314093000ABCDEF")

	link, err := svc.Issue(context.Background(), donation, existingDonor(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/receipts/download?token="))
	assert.True(t, donation.ReceiptGenerated)
	assert.Equal(t, []int64{donation.ID}, donations.marked)

	_, err = os.Stat(local.Path("receipt_HF20250314093000ABCDEF.pdf"))
	require.NoError(t, err)

	download, err := svc.Open(context.Background(), tokenFrom(t, link))
	require.NoError(t, err)
	defer download.File.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(download.File, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
	assert.Equal(t, "receipt_HF20250314093000ABCDEF.pdf", download.Filename)
	assert.Positive(t, download.Size)
}

func TestReceiptServiceRejectsBadToken(t *testing.T) {
	svc, _, _ := newTestReceiptService(t)

	_, err := svc.Open(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReceiptServiceLinkRegeneratesMissingFile(t *testing.T) {
	svc, donations, local := newTestReceiptService(t)
	donation := storedDonation(t, donations, "HF20250314093000000001")

	link, err := svc.Link(context.Background(), donation.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenFrom(t, link))

	_, err = os.Stat(local.Path("receipt_HF20250314093000000001.pdf"))
	assert.NoError(t, err)

	_, err = svc.Link(context.Background(), 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReceiptServiceOpenAfterCleanup(t *testing.T) {
	svc, donations, local := newTestReceiptService(t)
	donation := storedDonation(t, donations, "HF20250314093000000002")

	link, err := svc.Issue(context.Background(), donation, nil)
	require.NoError(t, err)
	require.NoError(t, local.Delete("receipt_HF20250314093000000002.pdf"))

	download, err := svc.Open(context.Background(), tokenFrom(t, link))
	require.NoError(t, err)
	download.File.Close()
}

func TestReceiptServiceRegeneratedReceiptKeepsLines(t *testing.T) {
	svc, donations, local := newTestReceiptService(t)
	renderer := &recordingRenderer{inner: export.NewReceiptRenderer()}
	svc.renderer = renderer
	donation := storedDonation(t, donations, "HF20250314093000000003")

	_, err := svc.Issue(context.Background(), donation, existingDonor(t))
	require.NoError(t, err)
	require.NoError(t, local.Delete("receipt_HF20250314093000000003.pdf"))

	_, err = svc.Link(context.Background(), donation.ID)
	require.NoError(t, err)

	require.Len(t, renderer.receipts, 2)
	first, again := renderer.receipts[0], renderer.receipts[1]
	assert.Equal(t, first.Lines, again.Lines)
	assert.Len(t, again.Lines, 2)
	assert.Equal(t, "113.00", again.Tax.StringFixed(2))
	assert.Equal(t, first.DonorName, again.DonorName)
}
