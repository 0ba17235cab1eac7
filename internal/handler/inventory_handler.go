package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type inventoryService interface {
	Catalog(ctx context.Context) ([]models.CatalogItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
	Adjust(ctx context.Context, productID int, req models.StockAdjustment) (*models.InventoryItem, error)
}

// InventoryHandler serves the public catalog and the staff stock screens.
type InventoryHandler struct {
	service inventoryService
}

// NewInventoryHandler constructs the handler.
func NewInventoryHandler(svc inventoryService) *InventoryHandler {
	return &InventoryHandler{service: svc}
}

// Catalog godoc
// @Summary List donatable products
// @Description Products with stock status and the largest quantity a cart line may hold
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *InventoryHandler) Catalog(c *gin.Context) {
	items, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// List godoc
// @Summary List inventory
// @Tags Inventory
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// LowStock godoc
// @Summary List low stock products
// @Tags Inventory
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Adjust godoc
// @Summary Adjust stock
// @Description Apply a signed correction to a product's stock counter
// @Tags Inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param payload body models.StockAdjustment true "Adjustment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/inventory/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.StockAdjustment
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	item, err := h.service.Adjust(c.Request.Context(), int(id), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
