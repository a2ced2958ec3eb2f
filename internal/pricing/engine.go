package pricing

// LineInput is the raw, stored form of a document line.
type LineInput struct {
	Qty       float64
	UnitPrice float64
	Discount  Discount
}

// LineTotals holds the derived figures for a single line. None of these are
// ever persisted; they are recomputed from LineInput on every read.
type LineTotals struct {
	Subtotal           float64
	DiscountAmount     float64
	PostDiscountAmount float64
	Tax                float64
	Total              float64
}

// DocumentTotals aggregates line totals for one document.
type DocumentTotals struct {
	BeforeDiscount float64
	Discount       float64
	AfterDiscount  float64
	VAT            float64
	GrandTotal     float64
}

// DocumentInput is everything the reducer needs to derive a document's figures.
type DocumentInput struct {
	Items      []LineInput
	Mode       DiscountMode
	Global     Discount
	VATEnabled bool
	VATRate    float64
}

// ComputeLine derives one line's figures. Malformed numeric input is clamped
// to a zero contribution, never rejected; upstream validation owns rejection.
func ComputeLine(in LineInput, vatEnabled bool, vatRate float64) LineTotals {
	subtotal := lineSubtotal(in)
	discount := in.Discount.AmountFor(subtotal)
	post := subtotal - discount
	var tax float64
	if vatEnabled && vatRate > 0 {
		tax = post * vatRate
	}
	return LineTotals{
		Subtotal:           subtotal,
		DiscountAmount:     discount,
		PostDiscountAmount: post,
		Tax:                tax,
		Total:              post + tax,
	}
}

// AllocateGlobalDiscount rewrites each item's discount with its share of a
// document-wide discount. Percent discounts apply the same clamped rate to
// every line; fixed discounts are split proportionally to each line's share
// of the combined subtotal. The allocation always starts from the current raw
// subtotals, so repeated calls with identical input yield identical output.
func AllocateGlobalDiscount(items []LineInput, global Discount) []LineInput {
	out := make([]LineInput, len(items))
	copy(out, items)

	if global.Value <= 0 {
		return ResetItemDiscounts(out)
	}

	if global.Type != DiscountFixed {
		rate := clamp(global.Value, 0, 100)
		for i := range out {
			out[i].Discount = Discount{Type: DiscountPercent, Value: rate}
		}
		return out
	}

	var sum float64
	subtotals := make([]float64, len(out))
	for i, it := range out {
		subtotals[i] = lineSubtotal(it)
		sum += subtotals[i]
	}
	if sum <= 0 {
		// Nothing to distribute against; guards the division below.
		return ResetItemDiscounts(out)
	}
	for i := range out {
		share := global.Value * subtotals[i] / sum
		// Floating error can push a share fractionally past its own subtotal.
		out[i].Discount = Discount{Type: DiscountFixed, Value: clamp(share, 0, subtotals[i])}
	}
	return out
}

// ResetItemDiscounts zeroes every line's discount. Used when the document
// switches from global back to per-item mode: the previous allocation is
// discarded, not converted into manual per-item values.
func ResetItemDiscounts(items []LineInput) []LineInput {
	out := make([]LineInput, len(items))
	copy(out, items)
	for i := range out {
		out[i].Discount = ZeroDiscount()
	}
	return out
}

// Aggregate folds line totals into document totals. Every presentation
// surface (list, detail, print, export) goes through this one function.
func Aggregate(lines []LineTotals) DocumentTotals {
	var t DocumentTotals
	for _, l := range lines {
		t.BeforeDiscount += l.Subtotal
		t.Discount += l.DiscountAmount
		t.VAT += l.Tax
		t.GrandTotal += l.Total
	}
	t.AfterDiscount = t.BeforeDiscount - t.Discount
	return t
}

// ComputeDocument is the single reducer from raw inputs to derived figures:
// allocate (global mode only), compute each line, aggregate. Callers rerun it
// in full after any edit instead of patching previously derived values.
func ComputeDocument(in DocumentInput) ([]LineTotals, DocumentTotals) {
	items := in.Items
	if in.Mode == ModeGlobal {
		items = AllocateGlobalDiscount(items, in.Global)
	}
	lines := make([]LineTotals, len(items))
	for i, it := range items {
		lines[i] = ComputeLine(it, in.VATEnabled, in.VATRate)
	}
	return lines, Aggregate(lines)
}

func lineSubtotal(in LineInput) float64 {
	qty := in.Qty
	if qty < 0 {
		qty = 0
	}
	price := in.UnitPrice
	if price < 0 {
		price = 0
	}
	return qty * price
}
