package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

// DefaultMaxLineQuantity caps a single cart line.
const DefaultMaxLineQuantity = 20

type inventoryRepository interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, productID int) (*models.InventoryItem, error)
	Decrement(ctx context.Context, productID, qty int, allowNegative bool) error
	Adjust(ctx context.Context, productID, delta int, allowNegative bool) (*models.InventoryItem, error)
}

// InventoryConfig carries stock accounting rules.
type InventoryConfig struct {
	AllowNegative          bool
	CriticalStockThreshold int
	MaxLineQuantity        int
}

// InventoryService exposes the supplement catalog and its stock counters.
type InventoryService struct {
	repo      inventoryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    InventoryConfig
}

// NewInventoryService constructs the inventory service.
func NewInventoryService(repo inventoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config InventoryConfig) *InventoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CriticalStockThreshold <= 0 {
		config.CriticalStockThreshold = 10
	}
	if config.MaxLineQuantity <= 0 {
		config.MaxLineQuantity = DefaultMaxLineQuantity
	}
	return &InventoryService{repo: repo, cache: cache, validator: validate, logger: logger, config: config}
}

// Catalog lists every product with its stock status and the largest quantity a cart line may hold.
func (s *InventoryService) Catalog(ctx context.Context) ([]models.CatalogItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		catalog = append(catalog, s.decorate(item))
	}
	return catalog, nil
}

// List returns raw inventory rows.
func (s *InventoryService) List(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}
	if items == nil {
		items = []models.InventoryItem{}
	}
	return items, nil
}

// LowStock returns products at or below their minimum level.
func (s *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list low stock")
	}
	if items == nil {
		items = []models.InventoryItem{}
	}
	return items, nil
}

// Get returns a single catalog product.
func (s *InventoryService) Get(ctx context.Context, productID int) (*models.CatalogItem, error) {
	item, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	decorated := s.decorate(*item)
	return &decorated, nil
}

// Adjust applies a signed stock correction.
func (s *InventoryService) Adjust(ctx context.Context, productID int, req models.StockAdjustment) (*models.InventoryItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "delta must be a non-zero integer")
	}
	item, err := s.repo.Adjust(ctx, productID, req.Delta, s.config.AllowNegative)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "adjustment would make stock negative")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust stock")
	}
	s.logger.Info("stock adjusted",
		zap.Int("product_id", productID), zap.Int("delta", req.Delta), zap.Int("stock", item.Stock), zap.String("reason", req.Reason))
	s.cache.InvalidateAnalytics(ctx)
	return item, nil
}

// Decrement takes qty units off a product.
func (s *InventoryService) Decrement(ctx context.Context, productID, qty int) error {
	if err := s.repo.Decrement(ctx, productID, qty, s.config.AllowNegative); err != nil {
		return err
	}
	s.cache.InvalidateAnalytics(ctx)
	return nil
}

func (s *InventoryService) decorate(item models.InventoryItem) models.CatalogItem {
	maxQty := item.Stock
	if maxQty > s.config.MaxLineQuantity {
		maxQty = s.config.MaxLineQuantity
	}
	if maxQty < 0 {
		maxQty = 0
	}
	return models.CatalogItem{
		InventoryItem: item,
		Status:        models.StockStatusFor(item.Stock, item.MinStockLevel, s.config.CriticalStockThreshold),
		MaxQuantity:   maxQty,
	}
}
