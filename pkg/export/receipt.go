package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Organisation details printed on every receipt.
const (
	OrganisationName    = "Husma Foundation"
	OrganisationAddress = "278/1, Katuwana Road, Homagama"
	OrganisationPhones  = "0777348822 / 0777138822"
	BankName            = "Sampath Bank, Homagama"
	BankAccountNumber   = "106914030823"
)

// ReceiptLine is one donated product on a receipt.
type ReceiptLine struct {
	Name     string
	Quantity int
	Subtotal decimal.Decimal
}

// Receipt is everything needed to print a donation receipt.
type Receipt struct {
	Number     string
	IssuedAt   time.Time
	DonorID    string
	DonorName  string
	DonorNIC   string
	DonorPhone string
	Amount     decimal.Decimal
	Tax        decimal.Decimal
	Lines      []ReceiptLine
	Remarks    string
}

// ReceiptRenderer prints donation receipts as PDF.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render produces the receipt PDF.
func (r *ReceiptRenderer) Render(rc Receipt) ([]byte, error) {
	if rc.Number == "" {
		return nil, fmt.Errorf("receipt number is required")
	}
	pdf := newDocument()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "HUSMA FOUNDATION - DONATION RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "", false, 0, "")
	}

	field("Receipt Number:", rc.Number)
	field("Date:", rc.IssuedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Donor Information", "", 1, "", false, 0, "")
	name := rc.DonorName
	if name == "" {
		name = "Anonymous"
	}
	field("Name:", name)
	field("Donor ID:", rc.DonorID)
	if rc.DonorNIC != "" {
		field("NIC:", rc.DonorNIC)
	}
	if rc.DonorPhone != "" {
		field("Phone:", rc.DonorPhone)
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Donation Details", "", 1, "", false, 0, "")
	if len(rc.Lines) > 0 {
		items := Dataset{Headers: []string{"Product", "Quantity", "Subtotal (LKR)"}}
		for _, line := range rc.Lines {
			items.Rows = append(items.Rows, map[string]string{
				"Product":        line.Name,
				"Quantity":       fmt.Sprintf("%d", line.Quantity),
				"Subtotal (LKR)": FormatAmount(line.Subtotal),
			})
		}
		writeTable(pdf, items)
		pdf.Ln(2)
	}
	if rc.Tax.IsPositive() {
		field("Tax:", "LKR "+FormatAmount(rc.Tax))
	}
	field("Amount:", "LKR "+FormatAmount(rc.Amount))
	field("Payment Method:", "Bank Transfer")
	if rc.Remarks != "" {
		field("Remarks:", rc.Remarks)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 11)
	pdf.CellFormat(0, 7, "Thank you for your generous donation!", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	for _, line := range []string{
		OrganisationName,
		OrganisationAddress,
		OrganisationPhones,
		fmt.Sprintf("Bank: %s  Account: %s", BankName, BankAccountNumber),
	} {
		pdf.CellFormat(0, 5, line, "", 1, "C", false, 0, "")
	}

	return output(pdf)
}
