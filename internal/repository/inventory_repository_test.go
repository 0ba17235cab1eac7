package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inventoryRowColumns = []string{"product_id", "name", "price", "stock", "min_stock_level", "image_path", "created_at"}

func TestInventoryRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, name, price, stock, min_stock_level, image_path, created_at FROM inventory ORDER BY product_id")).
		WillReturnRows(sqlmock.NewRows(inventoryRowColumns).
			AddRow(1, "Pediasure", "3900.00", 50, 20, "static/images/pediasure.jpg", time.Now()).
			AddRow(2, "Ensure", 3500.0, 5, 20, nil, time.Now()))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3900", items[0].Price.String())
	assert.Equal(t, "3500", items[1].Price.String())
	assert.Nil(t, items[1].ImagePath)
}

func TestInventoryRepositoryDecrementAllowsNegative(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory SET stock = stock - ? WHERE product_id = ?")).
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Decrement(context.Background(), 1, 3, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryDecrementFloored(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory SET stock = stock - ? WHERE product_id = ? AND stock >= ?")).
		WithArgs(10, 1, 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM inventory WHERE product_id = ?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(inventoryRowColumns).AddRow(1, "Pediasure", "3900", 4, 20, nil, time.Now()))

	err := repo.Decrement(context.Background(), 1, 10, false)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryDecrementUnknownProduct(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectExec("UPDATE inventory").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM inventory WHERE product_id = ?").WillReturnError(sql.ErrNoRows)

	err := repo.Decrement(context.Background(), 42, 1, true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInventoryRepositoryAdjust(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory SET stock = stock + ? WHERE product_id = ? RETURNING product_id")).
		WithArgs(-5, 2).
		WillReturnRows(sqlmock.NewRows(inventoryRowColumns).AddRow(2, "Ensure", "3500", 45, 20, nil, time.Now()))

	item, err := repo.Adjust(context.Background(), 2, -5, true)
	require.NoError(t, err)
	assert.Equal(t, 45, item.Stock)
}

func TestInventoryRepositoryLowStock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE stock <= min_stock_level ORDER BY stock, product_id")).
		WillReturnRows(sqlmock.NewRows(inventoryRowColumns).AddRow(3, "Sustagen", "3200", 0, 20, nil, time.Now()))

	items, err := repo.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].Stock)
}
