package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
)

// CartStore persists session carts.
type CartStore interface {
	Get(ctx context.Context, key string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, key string) error
}

type catalogReader interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, productID int) (*models.InventoryItem, error)
}

// CartService drives the Browsing -> Checkout-Pending flow for one session cart.
type CartService struct {
	store           CartStore
	catalog         catalogReader
	calculator      *CartCalculator
	maxLineQuantity int
	logger          *zap.Logger
}

// NewCartService constructs the cart service.
func NewCartService(store CartStore, catalog catalogReader, calculator *CartCalculator, maxLineQuantity int, logger *zap.Logger) *CartService {
	if calculator == nil {
		calculator = NewCartCalculator(DefaultTaxRate)
	}
	if maxLineQuantity <= 0 {
		maxLineQuantity = DefaultMaxLineQuantity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{store: store, catalog: catalog, calculator: calculator, maxLineQuantity: maxLineQuantity, logger: logger}
}

// Load returns the stored cart or a fresh browsing cart.
func (s *CartService) Load(ctx context.Context, key, donorID string) (*models.Cart, error) {
	cart, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return models.NewCart(key, donorID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cart")
	}
	if cart.Lines == nil {
		cart.Lines = make(map[int]int)
	}
	if donorID != "" {
		cart.DonorID = donorID
	}
	return cart, nil
}

// View prices the cart at current catalog prices.
func (s *CartService) View(ctx context.Context, key, donorID string) (*models.CartView, error) {
	cart, err := s.Load(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Totals prices an already loaded cart.
func (s *CartService) Totals(ctx context.Context, cart *models.Cart) (models.CartTotals, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return models.CartTotals{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	catalog := make(map[int]models.InventoryItem, len(items))
	for _, item := range items {
		catalog[item.ProductID] = item
	}
	return s.calculator.ComputeTotal(cart.Lines, catalog, cart.DirectAmount), nil
}

// SetLine replaces the quantity for a product. Quantity must lie within
// 0..min(stock, max line quantity).
func (s *CartService) SetLine(ctx context.Context, key, donorID string, productID, quantity int) (*models.CartView, error) {
	if quantity < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quantity must not be negative")
	}
	cart, err := s.browsing(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	item, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	limit := item.Stock
	if limit > s.maxLineQuantity {
		limit = s.maxLineQuantity
	}
	if quantity > limit {
		if limit < 0 {
			limit = 0
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("only %d units of %s can be added", limit, item.Name))
	}
	cart.Lines[productID] = quantity
	return s.persist(ctx, cart)
}

// RemoveLine drops a product line; absent lines are a no-op.
func (s *CartService) RemoveLine(ctx context.Context, key, donorID string, productID int) (*models.CartView, error) {
	cart, err := s.browsing(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	delete(cart.Lines, productID)
	return s.persist(ctx, cart)
}

// SetDirectAmount records a monetary contribution on top of the products.
func (s *CartService) SetDirectAmount(ctx context.Context, key, donorID string, amount decimal.Decimal) (*models.CartView, error) {
	if amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	cart, err := s.browsing(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	cart.DirectAmount = amount.Round(2)
	return s.persist(ctx, cart)
}

// Clear discards the cart entirely.
func (s *CartService) Clear(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear cart")
	}
	return nil
}

// BeginCheckout moves a browsing cart to Checkout-Pending.
func (s *CartService) BeginCheckout(ctx context.Context, key, donorID string) (*models.CartView, error) {
	cart, err := s.browsing(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	cart.State = models.CartCheckoutPending
	return s.persist(ctx, cart)
}

// Back returns a pending cart to Browsing without persisting anything else.
func (s *CartService) Back(ctx context.Context, key, donorID string) (*models.CartView, error) {
	cart, err := s.Load(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	if cart.State != models.CartCheckoutPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidCartState, "cart is not awaiting checkout")
	}
	cart.State = models.CartBrowsing
	return s.persist(ctx, cart)
}

func (s *CartService) browsing(ctx context.Context, key, donorID string) (*models.Cart, error) {
	cart, err := s.Load(ctx, key, donorID)
	if err != nil {
		return nil, err
	}
	if cart.State != models.CartBrowsing {
		return nil, appErrors.Clone(appErrors.ErrInvalidCartState, "cart is awaiting checkout; go back to edit it")
	}
	return cart, nil
}

func (s *CartService) persist(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	cart.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save cart")
	}
	return s.view(ctx, cart)
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	totals, err := s.Totals(ctx, cart)
	if err != nil {
		return nil, err
	}
	return &models.CartView{State: cart.State, Totals: totals}, nil
}
