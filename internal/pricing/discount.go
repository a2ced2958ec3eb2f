package pricing

import "strings"

// DiscountType tags how a discount value is interpreted.
type DiscountType string

const (
	// DiscountPercent interprets the value as a percentage in [0,100].
	DiscountPercent DiscountType = "percent"
	// DiscountFixed interprets the value as a currency amount bounded by the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// DiscountMode selects between per-item discounts and one document-wide discount.
type DiscountMode string

const (
	// ModePerItem lets every line carry its own discount.
	ModePerItem DiscountMode = "per_item"
	// ModeGlobal distributes a single document-level discount across all lines.
	ModeGlobal DiscountMode = "global"
)

// Discount is a validated discount specification. Construct via NewDiscount so
// out-of-range values are clamped once instead of at every call site.
type Discount struct {
	Type  DiscountType
	Value float64
}

// NewDiscount normalises the type and clamps the value into its valid range.
// An empty type means percent; unknown types fall back to a zero percent
// discount. Fixed values are lower
// clamped here; the upper bound depends on the line subtotal and is enforced
// in AmountFor.
func NewDiscount(kind DiscountType, value float64) Discount {
	switch DiscountType(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case DiscountFixed:
		if value < 0 {
			value = 0
		}
		return Discount{Type: DiscountFixed, Value: value}
	case DiscountPercent, "":
		return Discount{Type: DiscountPercent, Value: clamp(value, 0, 100)}
	default:
		return Discount{Type: DiscountPercent, Value: 0}
	}
}

// ZeroDiscount is the canonical empty discount.
func ZeroDiscount() Discount {
	return Discount{Type: DiscountPercent, Value: 0}
}

// AmountFor returns the currency amount this discount takes off the provided
// subtotal. The result is always within [0, subtotal].
func (d Discount) AmountFor(subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	switch d.Type {
	case DiscountFixed:
		return clamp(d.Value, 0, subtotal)
	default:
		return subtotal * clamp(d.Value, 0, 100) / 100
	}
}

// ParseMode normalises a stored discount mode, defaulting to per-item.
func ParseMode(value string) DiscountMode {
	if DiscountMode(strings.ToLower(strings.TrimSpace(value))) == ModeGlobal {
		return ModeGlobal
	}
	return ModePerItem
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
