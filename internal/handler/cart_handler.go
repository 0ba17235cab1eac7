package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/service"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type cartService interface {
	View(ctx context.Context, key, donorID string) (*models.CartView, error)
	SetLine(ctx context.Context, key, donorID string, productID, quantity int) (*models.CartView, error)
	RemoveLine(ctx context.Context, key, donorID string, productID int) (*models.CartView, error)
	SetDirectAmount(ctx context.Context, key, donorID string, amount decimal.Decimal) (*models.CartView, error)
	Clear(ctx context.Context, key string) error
	BeginCheckout(ctx context.Context, key, donorID string) (*models.CartView, error)
	Back(ctx context.Context, key, donorID string) (*models.CartView, error)
}

type checkoutService interface {
	Confirm(ctx context.Context, key, donorID string, req service.ConfirmRequest) (*models.CheckoutResult, error)
}

type setLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type directAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CartHandler drives the donation cart and checkout.
type CartHandler struct {
	carts    cartService
	checkout checkoutService
}

// NewCartHandler constructs the cart handler.
func NewCartHandler(carts cartService, checkout checkoutService) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout}
}

// View godoc
// @Summary Show cart
// @Tags Cart
// @Produce json
// @Param X-Cart-Session header string false "Anonymous cart session"
// @Success 200 {object} response.Envelope
// @Router /cart [get]
func (h *CartHandler) View(c *gin.Context) {
	key, donorID := cartKey(c)
	view, err := h.carts.View(c.Request.Context(), key, donorID)
	h.respond(c, view, err)
}

// SetLine godoc
// @Summary Set product quantity
// @Tags Cart
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param payload body setLineRequest true "Quantity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cart/lines/{productId} [put]
func (h *CartHandler) SetLine(c *gin.Context) {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req setLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "quantity is required"))
		return
	}
	key, donorID := cartKey(c)
	view, err := h.carts.SetLine(c.Request.Context(), key, donorID, int(productID), *req.Quantity)
	h.respond(c, view, err)
}

// RemoveLine godoc
// @Summary Remove product line
// @Tags Cart
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} response.Envelope
// @Router /cart/lines/{productId} [delete]
func (h *CartHandler) RemoveLine(c *gin.Context) {
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		response.Error(c, err)
		return
	}
	key, donorID := cartKey(c)
	view, err := h.carts.RemoveLine(c.Request.Context(), key, donorID, int(productID))
	h.respond(c, view, err)
}

// SetDirectAmount godoc
// @Summary Set direct donation amount
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body directAmountRequest true "Amount in LKR"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cart/direct-amount [put]
func (h *CartHandler) SetDirectAmount(c *gin.Context) {
	var req directAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "amount must be a number"))
		return
	}
	key, donorID := cartKey(c)
	view, err := h.carts.SetDirectAmount(c.Request.Context(), key, donorID, req.Amount)
	h.respond(c, view, err)
}

// Clear godoc
// @Summary Discard cart
// @Tags Cart
// @Success 204
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	key, _ := cartKey(c)
	if err := h.carts.Clear(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BeginCheckout godoc
// @Summary Start checkout
// @Description Freeze the cart and show the amount to transfer
// @Tags Cart
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cart/checkout [post]
func (h *CartHandler) BeginCheckout(c *gin.Context) {
	key, donorID := cartKey(c)
	view, err := h.carts.BeginCheckout(c.Request.Context(), key, donorID)
	h.respond(c, view, err)
}

// Back godoc
// @Summary Return to browsing
// @Tags Cart
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cart/checkout/back [post]
func (h *CartHandler) Back(c *gin.Context) {
	key, donorID := cartKey(c)
	view, err := h.carts.Back(c.Request.Context(), key, donorID)
	h.respond(c, view, err)
}

// Confirm godoc
// @Summary Confirm donation
// @Description Record the donation with an optional payment slip, update stock and issue a receipt
// @Tags Cart
// @Accept multipart/form-data
// @Produce json
// @Param grand_total formData string false "Grand total shown to the donor"
// @Param remarks formData string false "Remarks"
// @Param payment_slip formData file false "Bank transfer slip (jpg, jpeg, png, pdf)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cart/checkout/confirm [post]
func (h *CartHandler) Confirm(c *gin.Context) {
	req := service.ConfirmRequest{Remarks: strings.TrimSpace(c.PostForm("remarks"))}
	if raw := strings.TrimSpace(c.PostForm("grand_total")); raw != "" {
		total, err := decimal.NewFromString(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "grand_total must be a number"))
			return
		}
		req.GrandTotal = &total
	}

	file, err := c.FormFile("payment_slip")
	switch {
	case err == nil:
		content, openErr := file.Open()
		if openErr != nil {
			response.Error(c, appErrors.Wrap(openErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read payment slip"))
			return
		}
		defer content.Close()
		req.Slip = &service.SlipUpload{Filename: file.Filename, Size: file.Size, Content: content}
	case err != http.ErrMissingFile && err != http.ErrNotMultipart:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload"))
		return
	}

	key, donorID := cartKey(c)
	result, err := h.checkout.Confirm(c.Request.Context(), key, donorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *CartHandler) respond(c *gin.Context, view *models.CartView, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
