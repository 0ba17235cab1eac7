package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/export"
)

const exportPageSize = 500

type donationLister interface {
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationWithDonor, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderReport(title string, sections []export.Section) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the donation ledger and the analytics dashboard into files.
type ExportService struct {
	donations donationLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(donations donationLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{donations: donations, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// DonationsCSV pages through every donation matching filter and renders them as CSV.
func (s *ExportService) DonationsCSV(ctx context.Context, filter models.DonationFilter) (*ExportFile, error) {
	headers := []string{"ID", "Donor ID", "Donor Name", "Amount", "Date", "Receipt Number", "Payment Slip", "Remarks"}
	rows := make([]map[string]string, 0)

	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.donations.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
		}
		for _, d := range batch {
			rows = append(rows, map[string]string{
				"ID":             strconv.FormatInt(d.ID, 10),
				"Donor ID":       d.DonorID,
				"Donor Name":     d.DonorName,
				"Amount":         d.Amount.StringFixed(2),
				"Date":           d.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				"Receipt Number": deref(d.ReceiptNumber),
				"Payment Slip":   deref(d.PaymentSlip),
				"Remarks":        deref(d.Remarks),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render donations")
	}
	s.logger.Info("donations exported", zap.Int("rows", len(rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("donations_%s.csv", s.now().UTC().Format("20060102_150405")),
		ContentType: "text/csv",
		Data:        payload,
	}, nil
}

// AnalyticsPDF lays the dashboard out as a printable report.
func (s *ExportService) AnalyticsPDF(report *models.AnalyticsReport) (*ExportFile, error) {
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report is required")
	}
	summary := report.Summary
	sections := []export.Section{
		{
			Heading: "Donation Summary",
			Lines: []string{
				fmt.Sprintf("Total donations: %d", summary.Count),
				fmt.Sprintf("Total amount: LKR %s", export.FormatAmount(summary.Total)),
				fmt.Sprintf("Average donation: LKR %s", export.FormatAmount(summary.Average)),
				fmt.Sprintf("Largest donation: LKR %s", export.FormatAmount(summary.Largest)),
				fmt.Sprintf("Unique donors: %d", summary.UniqueDonors),
			},
		},
		{Heading: "Monthly Trend", Table: trendDataset(report.MonthlyTrend)},
		{Heading: "Top Donors", Table: rankingDataset(report.DonorRanking)},
		{
			Heading: "Distribution",
			Lines: []string{
				fmt.Sprintf("Children registered: %d", report.Distribution.Children),
				fmt.Sprintf("Supplements issued: %d", report.Distribution.Issues),
			},
			Table: distributionDataset(report.Distribution.BySupplement),
		},
		{Heading: "Low Stock", Table: lowStockDataset(report.LowStock)},
	}

	title := fmt.Sprintf("%s Analytics Report", export.OrganisationName)
	payload, err := s.pdf.RenderReport(title, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render analytics report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("analytics_%s.pdf", report.GeneratedAt.UTC().Format("20060102_150405")),
		ContentType: "application/pdf",
		Data:        payload,
	}, nil
}

func trendDataset(rows []models.MonthlyDonation) *export.Dataset {
	data := &export.Dataset{Headers: []string{"Month", "Donations", "Amount (LKR)"}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Month":        row.Month,
			"Donations":    strconv.FormatInt(row.Count, 10),
			"Amount (LKR)": export.FormatAmount(row.Total),
		})
	}
	return data
}

func rankingDataset(rows []models.DonorRank) *export.Dataset {
	data := &export.Dataset{Headers: []string{"Donor ID", "Name", "Donations", "Total (LKR)"}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Donor ID":    row.DonorID,
			"Name":        row.Name,
			"Donations":   strconv.FormatInt(row.Count, 10),
			"Total (LKR)": export.FormatAmount(row.Total),
		})
	}
	return data
}

func distributionDataset(rows []models.SupplementIssueCount) *export.Dataset {
	data := &export.Dataset{Headers: []string{"Supplement", "Issues"}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Supplement": string(row.MilkType),
			"Issues":     strconv.FormatInt(row.Issues, 10),
		})
	}
	return data
}

func lowStockDataset(rows []models.InventoryItem) *export.Dataset {
	data := &export.Dataset{Headers: []string{"Product", "Stock", "Minimum"}}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Product": row.Name,
			"Stock":   strconv.Itoa(row.Stock),
			"Minimum": strconv.Itoa(row.MinStockLevel),
		})
	}
	return data
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
