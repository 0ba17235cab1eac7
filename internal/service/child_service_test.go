package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

type fakeChildRepo struct {
	children  map[int64]*models.Child
	issues    []models.Issue
	inventory *fakeInventoryRepo
	nextID    int64
}

func newFakeChildRepo(inventory *fakeInventoryRepo) *fakeChildRepo {
	return &fakeChildRepo{children: map[int64]*models.Child{}, inventory: inventory}
}

func (f *fakeChildRepo) Create(_ context.Context, child *models.Child) error {
	f.nextID++
	child.ID = f.nextID
	stored := *child
	f.children[child.ID] = &stored
	return nil
}

func (f *fakeChildRepo) Update(_ context.Context, child *models.Child) error {
	if _, ok := f.children[child.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *child
	f.children[child.ID] = &stored
	return nil
}

func (f *fakeChildRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.children[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.children, id)
	kept := f.issues[:0]
	for _, issue := range f.issues {
		if issue.ChildID != id {
			kept = append(kept, issue)
		}
	}
	f.issues = kept
	return nil
}

func (f *fakeChildRepo) FindByID(_ context.Context, id int64) (*models.Child, error) {
	child, ok := f.children[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *child
	return &copied, nil
}

func (f *fakeChildRepo) List(_ context.Context, filter models.ChildFilter) ([]models.Child, error) {
	out := make([]models.Child, 0)
	for _, child := range f.children {
		if strings.Contains(strings.ToLower(child.Name), strings.ToLower(filter.Search)) {
			out = append(out, *child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeChildRepo) ListIssues(_ context.Context, childID int64) ([]models.Issue, error) {
	out := make([]models.Issue, 0)
	for i := len(f.issues) - 1; i >= 0; i-- {
		if f.issues[i].ChildID == childID {
			out = append(out, f.issues[i])
		}
	}
	return out, nil
}

func (f *fakeChildRepo) RecordIssue(ctx context.Context, issue *models.Issue, allowNegative bool) (bool, error) {
	var productID int
	for id, item := range f.inventory.items {
		if item.Name == string(issue.MilkType) {
			productID = id
		}
	}
	if productID != 0 {
		if err := f.inventory.Decrement(ctx, productID, 1, allowNegative); err != nil {
			return false, err
		}
	}
	issue.ID = int64(len(f.issues) + 1)
	f.issues = append(f.issues, *issue)
	date := issue.Date
	f.children[issue.ChildID].LastIssue = &date
	return productID != 0, nil
}

func (f *fakeChildRepo) CreateWithIssue(ctx context.Context, child *models.Child, issue *models.Issue, allowNegative bool) (bool, error) {
	if err := f.Create(ctx, child); err != nil {
		return false, err
	}
	issue.ChildID = child.ID
	updated, err := f.RecordIssue(ctx, issue, allowNegative)
	if err != nil {
		delete(f.children, child.ID)
		return false, err
	}
	date := issue.Date
	child.LastIssue = &date
	return updated, nil
}

func newTestChildService(t *testing.T) (*ChildService, *fakeChildRepo, *fakeInventoryRepo) {
	t.Helper()
	inventory := newFakeInventoryRepo()
	repo := newFakeChildRepo(inventory)
	svc := NewChildService(repo, nil, nil, nil, zap.NewNop(), true)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc, repo, inventory
}

func validChild() models.ChildRequest {
	return models.ChildRequest{
		Name:     "Nimal Perera",
		Birthday: "2021-06-01",
		Guardian: "Kamala Perera",
		Phone:    "071-234 5678",
		MilkType: models.SupplementPediasure,
	}
}

func TestChildServiceCreate(t *testing.T) {
	svc, _, inventory := newTestChildService(t)

	child, err := svc.Create(context.Background(), validChild())
	require.NoError(t, err)
	assert.Equal(t, "0712345678", child.Phone)
	assert.Nil(t, child.LastIssue)
	assert.Equal(t, 50, inventory.stock(1))

	req := validChild()
	req.IssueToday = true
	child, err = svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, child.LastIssue)
	assert.Equal(t, "2025-03-14", child.LastIssue.Format(dateLayout))
	assert.Equal(t, 49, inventory.stock(1))
}

func TestChildServiceCreateIssueTodayOutOfStockKeepsNothing(t *testing.T) {
	svc, repo, inventory := newTestChildService(t)
	svc.allowNegative = false
	inventory.items[3].Stock = 0

	req := validChild()
	req.MilkType = models.SupplementSustagen
	req.IssueToday = true
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrInsufficientStock)

	children, err := svc.List(context.Background(), models.ChildFilter{})
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.Empty(t, repo.issues)
	assert.Equal(t, 0, inventory.stock(3))
}

func TestChildServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestChildService(t)

	cases := map[string]func(*models.ChildRequest){
		"unknown supplement": func(r *models.ChildRequest) { r.MilkType = "Milo" },
		"missing name":       func(r *models.ChildRequest) { r.Name = "  " },
		"bad phone":          func(r *models.ChildRequest) { r.Phone = "12345" },
		"bad birthday":       func(r *models.ChildRequest) { r.Birthday = "01/06/2021" },
		"future birthday":    func(r *models.ChildRequest) { r.Birthday = "2030-01-01" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validChild()
			mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestChildServiceIssueMilkTwiceSameDay(t *testing.T) {
	svc, repo, inventory := newTestChildService(t)
	child, err := svc.Create(context.Background(), validChild())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{Date: "2025-03-10"})
		require.NoError(t, err)
		assert.True(t, result.StockUpdated)
	}

	assert.Equal(t, 48, inventory.stock(1))
	issues, err := svc.Issues(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Equal(t, "2025-03-10", repo.children[child.ID].LastIssue.Format(dateLayout))
}

func TestChildServiceIssueMilkLastWriteWins(t *testing.T) {
	svc, repo, _ := newTestChildService(t)
	child, err := svc.Create(context.Background(), validChild())
	require.NoError(t, err)

	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{Date: "2025-03-10"})
	require.NoError(t, err)
	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{Date: "2025-02-01"})
	require.NoError(t, err)

	assert.Equal(t, "2025-02-01", repo.children[child.ID].LastIssue.Format(dateLayout))
}

func TestChildServiceIssueMilkWithoutMatchingProduct(t *testing.T) {
	svc, _, inventory := newTestChildService(t)
	req := validChild()
	req.MilkType = models.SupplementSustagenJunior
	child, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	result, err := svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{})
	require.NoError(t, err)
	assert.False(t, result.StockUpdated)
	assert.Equal(t, "2025-03-14", result.Issue.Date.Format(dateLayout))
	assert.Empty(t, inventory.decrements)
}

func TestChildServiceIssueMilkErrors(t *testing.T) {
	svc, repo, _ := newTestChildService(t)

	_, err := svc.IssueMilk(context.Background(), 404, models.IssueRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	req := validChild()
	req.MilkType = models.SupplementSustagen
	child, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{Date: "14-03-2025"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	svc.allowNegative = false
	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{})
	require.NoError(t, err)
	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientStock)
	assert.Len(t, repo.issues, 1)
}

func TestChildServiceDeleteCascadesIssues(t *testing.T) {
	svc, repo, _ := newTestChildService(t)
	child, err := svc.Create(context.Background(), validChild())
	require.NoError(t, err)
	other, err := svc.Create(context.Background(), validChild())
	require.NoError(t, err)

	_, err = svc.IssueMilk(context.Background(), child.ID, models.IssueRequest{})
	require.NoError(t, err)
	_, err = svc.IssueMilk(context.Background(), other.ID, models.IssueRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), child.ID))
	issues, err := repo.ListIssues(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Len(t, repo.issues, 1)

	_, err = svc.Issues(context.Background(), child.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), child.ID), appErrors.ErrNotFound)
}

func TestChildServiceUpdateKeepsLastIssue(t *testing.T) {
	svc, _, _ := newTestChildService(t)
	req := validChild()
	req.IssueToday = true
	child, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	update := validChild()
	update.Name = "Nimal P."
	update.MilkType = models.SupplementEnsure
	updated, err := svc.Update(context.Background(), child.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Nimal P.", updated.Name)
	require.NotNil(t, updated.LastIssue)

	_, err = svc.Update(context.Background(), 404, update)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
