package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/husma-donation-api/internal/middleware"
	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/service"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/response"
)

type analyticsService interface {
	Report(ctx context.Context) (*models.AnalyticsReport, bool, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

type reportExporter interface {
	AnalyticsPDF(report *models.AnalyticsReport) (*service.ExportFile, error)
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	exporter  reportExporter
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService, exporter reportExporter) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exporter: exporter}
}

// Report godoc
// @Summary Donation analytics
// @Description Summary, monthly trend, donor ranking, distribution and low stock
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/analytics [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	report, cacheHit, err := h.analytics.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// ReportPDF godoc
// @Summary Download analytics report
// @Tags Analytics
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /admin/analytics/report.pdf [get]
func (h *AnalyticsHandler) ReportPDF(c *gin.Context) {
	report, _, err := h.analytics.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.AnalyticsPDF(report)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Bytes(c, file.Filename, file.ContentType, file.Data)
}

// System godoc
// @Summary System metrics
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
