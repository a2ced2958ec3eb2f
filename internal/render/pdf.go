package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/backend-billing/internal/document"
)

// BuildPDF renders a single document view as a printable A4 PDF. The figures
// are taken from the view as-is; rendering never recomputes anything.
func BuildPDF(view document.View) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, strings.ToUpper(view.Kind))
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(70, 10, view.DisplayNumber, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if view.CustomerName != "" {
		pdf.Cell(190, 6, "Customer: "+view.CustomerName)
		pdf.Ln(6)
	}
	pdf.Cell(190, 6, "Date: "+view.CreatedAt.Format("2006-01-02"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(70, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Discount", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 7, "Line Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range view.Lines {
		pdf.CellFormat(70, 7, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, formatAmount(line.Qty), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, formatAmount(line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, formatAmount(line.DiscountAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, formatAmount(line.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	writeTotal := func(label string, amount float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(150, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, formatAmount(amount), "", 1, "R", false, 0, "")
	}
	writeTotal("Subtotal", view.Totals.TotalBeforeDiscount, false)
	writeTotal("Discount", view.Totals.TotalDiscount, false)
	writeTotal("After Discount", view.Totals.TotalAfterDiscount, false)
	if view.VATEnabled {
		writeTotal(fmt.Sprintf("VAT (%.0f%%)", view.VATRate*100), view.Totals.TotalVAT, false)
	}
	writeTotal("Grand Total", view.Totals.GrandTotal, true)

	if view.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(190, 5, "Notes: "+view.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
