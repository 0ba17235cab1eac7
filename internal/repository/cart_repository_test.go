package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

func TestMemoryCartRepositoryRoundTripIsolatesCopies(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	ctx := context.Background()

	cart := models.NewCart("D001", "D001")
	cart.Lines[1] = 2
	cart.DirectAmount = decimal.NewFromInt(1000)
	require.NoError(t, repo.Save(ctx, cart))

	cart.Lines[1] = 9

	loaded, err := repo.Get(ctx, "D001")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Lines[1])
	assert.True(t, loaded.DirectAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, models.CartBrowsing, loaded.State)
}

func TestMemoryCartRepositoryExpiry(t *testing.T) {
	repo := NewMemoryCartRepository(time.Minute)
	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(context.Background(), models.NewCart("s1", "")))
	now = now.Add(2 * time.Minute)

	_, err := repo.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryCartRepositoryDelete(t *testing.T) {
	repo := NewMemoryCartRepository(0)
	require.NoError(t, repo.Save(context.Background(), models.NewCart("s1", "")))
	require.NoError(t, repo.Delete(context.Background(), "s1"))

	_, err := repo.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}
