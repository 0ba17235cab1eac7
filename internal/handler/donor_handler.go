package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type donorService interface {
	Get(ctx context.Context, donorID string) (*models.Donor, error)
	List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, *models.Pagination, error)
	History(ctx context.Context, donorID string) (*models.DonationHistory, error)
}

// DonorHandler serves donor profiles and donation history.
type DonorHandler struct {
	service donorService
}

// NewDonorHandler constructs the donor handler.
func NewDonorHandler(svc donorService) *DonorHandler {
	return &DonorHandler{service: svc}
}

// Me godoc
// @Summary Current donor profile
// @Tags Donors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /donors/me [get]
func (h *DonorHandler) Me(c *gin.Context) {
	donorID := donorFromContext(c)
	if donorID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	donor, err := h.service.Get(c.Request.Context(), donorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donor, nil)
}

// MyDonations godoc
// @Summary Current donor's donations
// @Description Donations newest first with the lifetime total
// @Tags Donors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /donors/me/donations [get]
func (h *DonorHandler) MyDonations(c *gin.Context) {
	donorID := donorFromContext(c)
	if donorID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	history, err := h.service.History(c.Request.Context(), donorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// List godoc
// @Summary List donors
// @Tags Donors
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, username, email or phone fragment"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/donors [get]
func (h *DonorHandler) List(c *gin.Context) {
	filter := models.DonorFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	donors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donors, pagination)
}

// Get godoc
// @Summary Get donor
// @Tags Donors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Donor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/donors/{id} [get]
func (h *DonorHandler) Get(c *gin.Context) {
	donor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donor, nil)
}
