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

	"github.com/noah-isme/husma-donation-api/internal/models"
)

func TestChildRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectQuery("INSERT INTO children .* RETURNING id").
		WithArgs("Kasun", nil, "Sunil", "0771234567", models.SupplementEnsure, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	child := &models.Child{Name: "Kasun", Guardian: "Sunil", Phone: "0771234567", MilkType: models.SupplementEnsure}
	require.NoError(t, repo.Create(context.Background(), child))
	assert.Equal(t, int64(7), child.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryDeleteCascadesIssues(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM issues WHERE child_id = ?")).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM children WHERE id = ?")).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM issues").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM children").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryListSearchesByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, birthday, guardian, phone, milk_type, last_issue, created_at FROM children WHERE LOWER(name) LIKE ? ORDER BY name")).
		WithArgs("%kas%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "birthday", "guardian", "phone", "milk_type", "last_issue", "created_at"}).
			AddRow(1, "Kasun", nil, "Sunil", "0771234567", "Ensure", nil, time.Now()))

	children, err := repo.List(context.Background(), models.ChildFilter{Search: "Kas"})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Nil(t, children[0].LastIssue)
}

func TestChildRepositoryRecordIssue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO issues (child_id, date, milk_type, quantity) VALUES (?, ?, ?, ?) RETURNING id")).
		WithArgs(int64(1), date, models.SupplementPediasure, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE children SET last_issue = ? WHERE id = ?")).
		WithArgs(date, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory SET stock = stock - ? WHERE name = ?")).
		WithArgs(1, "Pediasure").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	issue := &models.Issue{ChildID: 1, Date: date, MilkType: models.SupplementPediasure}
	updated, err := repo.RecordIssue(context.Background(), issue, true)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int64(11), issue.ID)
	assert.Equal(t, 1, issue.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryRecordIssueUnknownProductIsSkipped(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO issues").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("UPDATE children SET last_issue").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory SET stock = stock - ? WHERE name = ? AND stock >= ?")).
		WithArgs(1, "Mystery", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inventory WHERE name = ? LIMIT 1")).
		WithArgs("Mystery").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	updated, err := repo.RecordIssue(context.Background(), &models.Issue{ChildID: 1, Date: time.Now(), MilkType: "Mystery"}, false)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryRecordIssueFlooredStockRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO issues").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("UPDATE children SET last_issue").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE inventory SET stock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM inventory").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.RecordIssue(context.Background(), &models.Issue{ChildID: 1, Date: time.Now(), MilkType: models.SupplementEnsure}, false)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryCreateWithIssueRollsBackChild(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO children .* RETURNING id").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery("INSERT INTO issues").WithArgs(int64(9), sqlmock.AnyArg(), models.SupplementSustagen, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("UPDATE children SET last_issue").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE inventory SET stock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM inventory").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectRollback()

	child := &models.Child{Name: "Kasun", Guardian: "Sunil", Phone: "0771234567", MilkType: models.SupplementSustagen}
	_, err := repo.CreateWithIssue(context.Background(), child, &models.Issue{Date: time.Now(), MilkType: models.SupplementSustagen}, false)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Nil(t, child.LastIssue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryListIssuesNewestFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewChildRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, child_id, date, milk_type, quantity FROM issues WHERE child_id = ? ORDER BY date DESC, id DESC")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "child_id", "date", "milk_type", "quantity"}))

	issues, err := repo.ListIssues(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}
