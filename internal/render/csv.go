package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/noah-isme/backend-billing/internal/document"
)

var csvHeader = []string{
	"number", "kind", "customer", "created_at",
	"total_before_discount", "total_discount", "total_after_discount",
	"total_vat", "grand_total",
}

// WriteCSV streams one summary row per document, numbered and totalled the
// same way as every other surface.
func WriteCSV(w io.Writer, rows []document.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.DisplayNumber,
			row.Kind,
			row.CustomerName,
			row.CreatedAt.Format("2006-01-02"),
			formatAmount(row.Totals.TotalBeforeDiscount),
			formatAmount(row.Totals.TotalDiscount),
			formatAmount(row.Totals.TotalAfterDiscount),
			formatAmount(row.Totals.TotalVAT),
			formatAmount(row.Totals.GrandTotal),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
