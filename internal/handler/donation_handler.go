package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/service"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type donationService interface {
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, *models.Pagination, decimal.Decimal, error)
	Slip(ctx context.Context, id int64) (*service.ExportFile, error)
}

type donationExporter interface {
	DonationsCSV(ctx context.Context, filter models.DonationFilter) (*service.ExportFile, error)
}

type receiptLinker interface {
	Link(ctx context.Context, donationID int64) (*service.ReceiptLink, error)
}

// DonationHandler serves the staff donation ledger.
type DonationHandler struct {
	donations donationService
	exporter  donationExporter
	receipts  receiptLinker
}

// NewDonationHandler constructs the handler.
func NewDonationHandler(donations donationService, exporter donationExporter, receipts receiptLinker) *DonationHandler {
	return &DonationHandler{donations: donations, exporter: exporter, receipts: receipts}
}

// List godoc
// @Summary List donations
// @Description Donations newest first with the sum of the returned page in meta.page_total
// @Tags Donations
// @Produce json
// @Security BearerAuth
// @Param donor_id query string false "Donor ID"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	filter, err := parseDonationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, pageTotal, err := h.donations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination, map[string]interface{}{"page_total": pageTotal})
}

// ExportCSV godoc
// @Summary Export donations
// @Tags Donations
// @Produce text/csv
// @Security BearerAuth
// @Param donor_id query string false "Donor ID"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /admin/donations/export.csv [get]
func (h *DonationHandler) ExportCSV(c *gin.Context) {
	filter, err := parseDonationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.DonationsCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Bytes(c, file.Filename, file.ContentType, file.Data)
}

// Slip godoc
// @Summary Download payment slip
// @Tags Donations
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /admin/donations/{id}/slip [get]
func (h *DonationHandler) Slip(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.donations.Slip(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Bytes(c, file.Filename, file.ContentType, file.Data)
}

// ReceiptURL godoc
// @Summary Signed receipt link
// @Description Issue a short-lived download link, rendering the receipt again if it was cleaned up
// @Tags Donations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/donations/{id}/receipt-url [get]
func (h *DonationHandler) ReceiptURL(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.receipts.Link(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

func parseDonationFilter(c *gin.Context) (models.DonationFilter, error) {
	filter := models.DonationFilter{
		DonorID:  strings.TrimSpace(c.Query("donor_id")),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 50),
	}
	from, err := parseDateParam(c.Query("date_from"))
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(c.Query("date_to"))
	if err != nil {
		return filter, err
	}
	filter.DateFrom = from
	filter.DateTo = to
	return filter, nil
}
