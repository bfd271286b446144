package utils

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/Nkemdi/ezichop-api/models"
)

// InvoicePDF renders an order invoice. It is a pure function of the persisted
// order data; nothing is written to disk.
type InvoicePDF struct {
	BusinessName string
	Currency     string
}

func NewInvoicePDF(businessName, currency string) *InvoicePDF {
	return &InvoicePDF{BusinessName: businessName, Currency: currency}
}

func (g *InvoicePDF) Generate(order *models.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.OrderNumber, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, g.BusinessName)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice for order %s", order.OrderNumber))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", order.CreatedAt.Format("02 Jan 2006 15:04")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Billed to")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, order.CustomerName)
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("%s, %s", order.DeliveryAddress, order.DeliveryCity))
	pdf.Ln(6)
	pdf.Cell(0, 6, order.Phone)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Line total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.OrderItems {
		name := item.Name
		if item.Variant != "" {
			name = fmt.Sprintf("%s (%s)", name, item.Variant)
		}

		unitPrice := item.Price
		if item.VariantPrice != nil {
			unitPrice = *item.VariantPrice
		}
		var extrasTotal float64
		for _, extra := range item.Extras {
			extrasTotal += extra.Price * float64(extra.Quantity)
		}
		lineTotal := (unitPrice + extrasTotal) * float64(item.Quantity)

		pdf.CellFormat(90, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, g.money(unitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, g.money(lineTotal), "1", 1, "R", false, 0, "")

		for _, extra := range item.Extras {
			label := fmt.Sprintf("  + %s x%d", extra.Name, extra.Quantity)
			pdf.CellFormat(90, 7, label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, "", "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 7, g.money(extra.Price), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, "", "1", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(4)
	g.totalRow(pdf, "Subtotal", order.Subtotal, false)
	g.totalRow(pdf, fmt.Sprintf("Delivery (%s)", order.DeliveryMethod), order.DeliveryFee, false)
	if order.VatAmount > 0 {
		g.totalRow(pdf, fmt.Sprintf("VAT (%.1f%%)", order.VatRate), order.VatAmount, false)
	}
	g.totalRow(pdf, "Total", order.Total, true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *InvoicePDF) totalRow(pdf *gofpdf.Fpdf, label string, amount float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.CellFormat(145, 7, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, g.money(amount), "", 1, "R", false, 0, "")
}

func (g *InvoicePDF) money(v float64) string {
	return fmt.Sprintf("%s %.2f", g.Currency, v)
}
