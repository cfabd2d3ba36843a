package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	invoice "pos-backoffice/internal/invoice/domain"
)

// BuildInvoicePDF renders a minimal PDF for an issued invoice.
func BuildInvoicePDF(inv *invoice.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Invoice")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice: %s", inv.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Transaction: %s", inv.TransactionID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Order: %s", inv.OrderID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Customer: %s", inv.CustomerID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Issued: %s", inv.IssuedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Payment Status: %s", inv.PaymentStatus))
	pdf.Ln(8)

	// Line items table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Unit Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(60, 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, item.UnitPrice.Format(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, item.Total.Format(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Total (%s): %s", inv.Total.Currency, inv.Total.Format()))
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Paid: %s", inv.AmountPaid.Format()))
	if !inv.AmountRefunded.IsZero() {
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Refunded: %s", inv.AmountRefunded.Format()))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
