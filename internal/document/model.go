package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// Kind distinguishes the two document families sharing one schema.
type Kind string

const (
	KindQuotation Kind = "quotation"
	KindInvoice   Kind = "invoice"
)

// ParseKind normalises a kind string. Empty input defaults to quotation so
// list endpoints have a usable default collection.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindInvoice:
		return KindInvoice, nil
	case KindQuotation, "":
		return KindQuotation, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", value)
	}
}

// Item is the raw, stored form of one document line. Derived monetary fields
// never appear here; they are recomputed from these inputs on every read.
type Item struct {
	ID            string
	Description   string
	Qty           float64
	UnitPrice     float64
	DiscountType  pricing.DiscountType
	DiscountValue float64
	Position      int
}

// Document is the raw, stored form of a quotation or invoice.
type Document struct {
	ID                  string
	OwnerID             string
	Kind                Kind
	CustomerName        string
	Notes               string
	DiscountMode        pricing.DiscountMode
	GlobalDiscountType  pricing.DiscountType
	GlobalDiscountValue float64
	VATEnabled          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Items               []Item
}

// LineView is one line enriched with its derived figures.
type LineView struct {
	ID                 string  `json:"id"`
	Description        string  `json:"description"`
	Qty                float64 `json:"qty"`
	UnitPrice          float64 `json:"unit_price"`
	DiscountType       string  `json:"discount_type"`
	DiscountValue      float64 `json:"discount_value"`
	Subtotal           float64 `json:"subtotal"`
	DiscountAmount     float64 `json:"discount_amount"`
	PostDiscountAmount float64 `json:"post_discount_amount"`
	Tax                float64 `json:"tax"`
	Total              float64 `json:"total"`
}

// Totals is the document-level aggregate in API shape.
type Totals struct {
	TotalBeforeDiscount float64 `json:"total_before_discount"`
	TotalDiscount       float64 `json:"total_discount"`
	TotalAfterDiscount  float64 `json:"total_after_discount"`
	TotalVAT            float64 `json:"total_vat"`
	GrandTotal          float64 `json:"grand_total"`
}

// View is the full read model for one document: raw configuration plus every
// derived figure and the display number, all computed on this request.
type View struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	DisplayNumber       string    `json:"display_number"`
	CustomerName        string    `json:"customer_name,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	DiscountMode        string    `json:"discount_mode"`
	GlobalDiscountType  string    `json:"global_discount_type,omitempty"`
	GlobalDiscountValue float64   `json:"global_discount_value,omitempty"`
	VATEnabled          bool      `json:"vat_enabled"`
	VATRate             float64   `json:"vat_rate"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Lines               []LineView `json:"lines"`
	Totals              Totals     `json:"totals"`
}

// Summary is the list row: identity, number, and totals only.
type Summary struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	DisplayNumber string    `json:"display_number"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Totals        Totals    `json:"totals"`
}

func discountTypeFrom(value string) pricing.DiscountType {
	if strings.EqualFold(strings.TrimSpace(value), string(pricing.DiscountFixed)) {
		return pricing.DiscountFixed
	}
	return pricing.DiscountPercent
}

func parseModeFrom(value string) pricing.DiscountMode {
	return pricing.ParseMode(value)
}

func totalsFromPricing(t pricing.DocumentTotals) Totals {
	return Totals{
		TotalBeforeDiscount: t.BeforeDiscount,
		TotalDiscount:       t.Discount,
		TotalAfterDiscount:  t.AfterDiscount,
		TotalVAT:            t.VAT,
		GrandTotal:          t.GrandTotal,
	}
}

func (d Document) pricingInput(vatRate float64) pricing.DocumentInput {
	items := make([]pricing.LineInput, len(d.Items))
	for i, it := range d.Items {
		items[i] = pricing.LineInput{
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Discount:  pricing.NewDiscount(it.DiscountType, it.DiscountValue),
		}
	}
	return pricing.DocumentInput{
		Items:      items,
		Mode:       d.DiscountMode,
		Global:     pricing.NewDiscount(d.GlobalDiscountType, d.GlobalDiscountValue),
		VATEnabled: d.VATEnabled,
		VATRate:    vatRate,
	}
}
