package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/service"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

type responseEnvelope struct {
	Data       interface{}            `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin, Username: "admin"}, nil
	case "donor-token":
		return &models.JWTClaims{UserID: "D007", Role: models.RoleDonor, Username: "nimal"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type fakeAuthSrv struct {
	registered models.RegisterDonorRequest
	resetFor   string
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterDonorRequest) (*models.Donor, error) {
	f.registered = req
	return &models.Donor{DonorID: "D001", Name: req.Name, Username: req.Username}, nil
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "Secret12" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "donor-token", User: models.UserInfo{ID: "D001", Role: models.RoleDonor}}, nil
}

func (f *fakeAuthSrv) AdminLogin(context.Context, models.AdminLoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "admin-token", User: models.UserInfo{ID: "admin", Role: models.RoleAdmin}}, nil
}

func (f *fakeAuthSrv) RequestPasswordReset(_ context.Context, req models.PasswordResetRequest) error {
	f.resetFor = req.Identifier
	return nil
}

type fakeInventorySrv struct {
	adjusted models.StockAdjustment
}

func (f *fakeInventorySrv) Catalog(context.Context) ([]models.CatalogItem, error) {
	return []models.CatalogItem{{
		InventoryItem: models.InventoryItem{ProductID: 1, Name: "Pediasure 0-1 Vanilla", Price: decimal.NewFromInt(4500), Stock: 50, MinStockLevel: 20},
		Status:        models.StockInStock,
		MaxQuantity:   20,
	}}, nil
}

func (f *fakeInventorySrv) List(context.Context) ([]models.InventoryItem, error) {
	return []models.InventoryItem{{ProductID: 1, Name: "Pediasure 0-1 Vanilla", Stock: 50}}, nil
}

func (f *fakeInventorySrv) LowStock(context.Context) ([]models.InventoryItem, error) {
	return []models.InventoryItem{}, nil
}

func (f *fakeInventorySrv) Adjust(_ context.Context, productID int, req models.StockAdjustment) (*models.InventoryItem, error) {
	if productID != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
	}
	f.adjusted = req
	return &models.InventoryItem{ProductID: 1, Stock: 50 + req.Delta}, nil
}

type fakeCartSrv struct {
	lastKey   string
	lastDonor string
	lines     map[int]int
	state     models.CartState
}

func newFakeCartSrv() *fakeCartSrv {
	return &fakeCartSrv{lines: map[int]int{}, state: models.CartBrowsing}
}

func (f *fakeCartSrv) record(key, donorID string) *models.CartView {
	f.lastKey = key
	f.lastDonor = donorID
	return &models.CartView{State: f.state}
}

func (f *fakeCartSrv) View(_ context.Context, key, donorID string) (*models.CartView, error) {
	return f.record(key, donorID), nil
}

func (f *fakeCartSrv) SetLine(_ context.Context, key, donorID string, productID, quantity int) (*models.CartView, error) {
	if quantity > 20 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only 20 units can be added")
	}
	f.lines[productID] = quantity
	return f.record(key, donorID), nil
}

func (f *fakeCartSrv) RemoveLine(_ context.Context, key, donorID string, productID int) (*models.CartView, error) {
	delete(f.lines, productID)
	return f.record(key, donorID), nil
}

func (f *fakeCartSrv) SetDirectAmount(_ context.Context, key, donorID string, _ decimal.Decimal) (*models.CartView, error) {
	return f.record(key, donorID), nil
}

func (f *fakeCartSrv) Clear(_ context.Context, key string) error {
	f.lastKey = key
	return nil
}

func (f *fakeCartSrv) BeginCheckout(_ context.Context, key, donorID string) (*models.CartView, error) {
	f.state = models.CartCheckoutPending
	return f.record(key, donorID), nil
}

func (f *fakeCartSrv) Back(_ context.Context, key, donorID string) (*models.CartView, error) {
	if f.state != models.CartCheckoutPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidCartState, "cart is not awaiting checkout")
	}
	f.state = models.CartBrowsing
	return f.record(key, donorID), nil
}

type fakeCheckoutSrv struct {
	key      string
	donorID  string
	req      service.ConfirmRequest
	slipData []byte
}

func (f *fakeCheckoutSrv) Confirm(_ context.Context, key, donorID string, req service.ConfirmRequest) (*models.CheckoutResult, error) {
	f.key = key
	f.donorID = donorID
	f.req = req
	if req.Slip != nil {
		buf := make([]byte, req.Slip.Size)
		n, _ := req.Slip.Content.Read(buf)
		f.slipData = buf[:n]
	}
	return &models.CheckoutResult{
		Donation:      models.Donation{ID: 1, DonorID: donorID, Amount: decimal.RequireFromString("4545.00")},
		ReceiptNumber: "HF20241001120000ABCDEF",
	}, nil
}

type fakeReceiptSrv struct {
	path string
}

func (f *fakeReceiptSrv) Open(_ context.Context, token string) (*service.ReceiptDownload, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired receipt link")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.ReceiptDownload{File: file, Filename: filepath.Base(f.path), Size: info.Size()}, nil
}

func (f *fakeReceiptSrv) Link(_ context.Context, donationID int64) (*service.ReceiptLink, error) {
	if donationID != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "donation not found")
	}
	return &service.ReceiptLink{URL: "/api/v1/receipts/download?token=abc", ExpiresAt: time.Date(2024, 10, 1, 12, 30, 0, 0, time.UTC)}, nil
}

type fakeDonorSrv struct{}

func (fakeDonorSrv) Get(_ context.Context, donorID string) (*models.Donor, error) {
	if donorID != "D007" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "donor not found")
	}
	return &models.Donor{DonorID: "D007", Name: "Nimal Perera"}, nil
}

func (fakeDonorSrv) List(_ context.Context, filter models.DonorFilter) ([]models.Donor, *models.Pagination, error) {
	return []models.Donor{{DonorID: "D007"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (fakeDonorSrv) History(_ context.Context, donorID string) (*models.DonationHistory, error) {
	return &models.DonationHistory{
		Donations: []models.Donation{{ID: 3, DonorID: donorID, Amount: decimal.NewFromInt(1000)}},
		Total:     decimal.NewFromInt(1000),
		Count:     1,
	}, nil
}

type fakeChildSrv struct {
	issued models.IssueRequest
}

func (f *fakeChildSrv) List(context.Context, models.ChildFilter) ([]models.Child, error) {
	return []models.Child{{ID: 1, Name: "Kavindu"}}, nil
}

func (f *fakeChildSrv) Get(_ context.Context, id int64) (*models.Child, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
	}
	return &models.Child{ID: 1, Name: "Kavindu"}, nil
}

func (f *fakeChildSrv) Create(_ context.Context, req models.ChildRequest) (*models.Child, error) {
	return &models.Child{ID: 2, Name: req.Name, MilkType: req.MilkType}, nil
}

func (f *fakeChildSrv) Update(_ context.Context, id int64, req models.ChildRequest) (*models.Child, error) {
	return &models.Child{ID: id, Name: req.Name}, nil
}

func (f *fakeChildSrv) Delete(context.Context, int64) error { return nil }

func (f *fakeChildSrv) Issues(context.Context, int64) ([]models.Issue, error) {
	return []models.Issue{}, nil
}

func (f *fakeChildSrv) IssueMilk(_ context.Context, childID int64, req models.IssueRequest) (*models.IssueResult, error) {
	f.issued = req
	return &models.IssueResult{Issue: models.Issue{ChildID: childID, MilkType: req.MilkType}, StockUpdated: true}, nil
}

type fakeDonationSrv struct {
	filter models.DonationFilter
}

func (f *fakeDonationSrv) List(_ context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, *models.Pagination, decimal.Decimal, error) {
	f.filter = filter
	rows := []models.DonationWithDonor{
		{Donation: models.Donation{ID: 2, Amount: decimal.NewFromInt(1500)}, DonorName: "Nimal"},
		{Donation: models.Donation{ID: 1, Amount: decimal.NewFromInt(2500)}, DonorName: "Anonymous"},
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 2}, decimal.NewFromInt(4000), nil
}

func (f *fakeDonationSrv) Slip(_ context.Context, id int64) (*service.ExportFile, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "donation has no payment slip")
	}
	return &service.ExportFile{Filename: "payment_D007_20241001120000.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}, nil
}

type fakeExporter struct {
	filter models.DonationFilter
}

func (f *fakeExporter) DonationsCSV(_ context.Context, filter models.DonationFilter) (*service.ExportFile, error) {
	f.filter = filter
	return &service.ExportFile{Filename: "donations.csv", ContentType: "text/csv", Data: []byte("ID,Amount\n1,2500.00\n")}, nil
}

func (f *fakeExporter) AnalyticsPDF(*models.AnalyticsReport) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "analytics.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}, nil
}

type fakeAnalyticsSrv struct {
	hit bool
}

func (f *fakeAnalyticsSrv) Report(context.Context) (*models.AnalyticsReport, bool, error) {
	return &models.AnalyticsReport{Summary: models.DonationSummary{Count: 3}}, f.hit, nil
}

func (f *fakeAnalyticsSrv) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{DonationsRecorded: 3}
}

type testHandlers struct {
	auth      *fakeAuthSrv
	inventory *fakeInventorySrv
	cart      *fakeCartSrv
	checkout  *fakeCheckoutSrv
	receipts  *fakeReceiptSrv
	children  *fakeChildSrv
	donations *fakeDonationSrv
	exporter  *fakeExporter
	analytics *fakeAnalyticsSrv
}

func buildTestRouter(t *testing.T) (*gin.Engine, *testHandlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	receiptPath := filepath.Join(t.TempDir(), "receipt_HF1.pdf")
	if err := os.WriteFile(receiptPath, []byte("%PDF-1.4 receipt"), 0o644); err != nil {
		t.Fatalf("write receipt: %v", err)
	}

	fakes := &testHandlers{
		auth:      &fakeAuthSrv{},
		inventory: &fakeInventorySrv{},
		cart:      newFakeCartSrv(),
		checkout:  &fakeCheckoutSrv{},
		receipts:  &fakeReceiptSrv{path: receiptPath},
		children:  &fakeChildSrv{},
		donations: &fakeDonationSrv{},
		exporter:  &fakeExporter{},
		analytics: &fakeAnalyticsSrv{},
	}

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Auth:      NewAuthHandler(fakes.auth),
		Inventory: NewInventoryHandler(fakes.inventory),
		Cart:      NewCartHandler(fakes.cart, fakes.checkout),
		Receipts:  NewReceiptHandler(fakes.receipts),
		Donors:    NewDonorHandler(fakeDonorSrv{}),
		Children:  NewChildHandler(fakes.children),
		Donations: NewDonationHandler(fakes.donations, fakes.exporter, fakes.receipts),
		Analytics: NewAnalyticsHandler(fakes.analytics, fakes.exporter),
	}, stubTokens{})
	return r, fakes
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
