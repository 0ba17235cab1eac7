package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

func TestDonationRepositoryCreateDefaultsToAnonymous(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDonationRepository(db)

	mock.ExpectQuery("INSERT INTO donations .* RETURNING id").
		WithArgs("anonymous", decimal.RequireFromString("11413"), nil, sqlmock.AnyArg(), false, nil, nil, decimal.Zero, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	donation := &models.Donation{Amount: decimal.RequireFromString("11413")}
	require.NoError(t, repo.Create(context.Background(), donation))
	assert.Equal(t, int64(5), donation.ID)
	assert.Equal(t, models.AnonymousDonorID, donation.DonorID)
	assert.False(t, donation.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepositoryListJoinsDonorName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDonationRepository(db)

	columns := []string{"id", "donor_id", "amount", "payment_slip", "timestamp", "receipt_generated", "receipt_number", "remarks", "tax", "line_items", "donor_name"}
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(d.name, 'Anonymous') AS donor_name")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "D001", "500.50", nil, time.Now(), false, "HF20240101120000ABCDEF", nil, "4.96", `[{"product_id":2,"name":"Ensure","quantity":1,"subtotal":"3500"}]`, "Nimal").
			AddRow(1, "anonymous", 1000.0, "payment_anonymous_20240101.png", time.Now(), true, nil, "for the ward", 0.0, nil, "Anonymous"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM donations n LEFT JOIN donors d ON d.donor_id = n.donor_id WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	donations, total, err := repo.List(context.Background(), models.DonationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, donations, 2)
	assert.Equal(t, "Nimal", donations[0].DonorName)
	assert.Equal(t, "500.5", donations[0].Amount.String())
	require.Len(t, donations[0].Lines, 1)
	assert.Equal(t, "Ensure", donations[0].Lines[0].Name)
	assert.Equal(t, "Anonymous", donations[1].DonorName)
	assert.Empty(t, donations[1].Lines)
	require.NotNil(t, donations[1].Remarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepositoryListByDonor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDonationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM donations WHERE donor_id = ? ORDER BY timestamp DESC, id DESC")).
		WithArgs("D002").
		WillReturnRows(sqlmock.NewRows([]string{"id", "donor_id", "amount", "payment_slip", "timestamp", "receipt_generated", "receipt_number", "remarks"}))

	donations, err := repo.ListByDonor(context.Background(), "D002")
	require.NoError(t, err)
	assert.Empty(t, donations)
}
