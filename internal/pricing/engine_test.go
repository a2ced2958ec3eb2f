package pricing

import (
	"math"
	"testing"
)

const tolerance = 1e-6

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestComputeLinePercent(t *testing.T) {
	line := ComputeLine(LineInput{Qty: 2, UnitPrice: 100, Discount: NewDiscount(DiscountPercent, 10)}, true, 0.15)
	if !closeTo(line.Subtotal, 200) {
		t.Fatalf("expected subtotal 200, got %v", line.Subtotal)
	}
	if !closeTo(line.DiscountAmount, 20) {
		t.Fatalf("expected discount 20, got %v", line.DiscountAmount)
	}
	if !closeTo(line.PostDiscountAmount, 180) {
		t.Fatalf("expected post-discount 180, got %v", line.PostDiscountAmount)
	}
	if !closeTo(line.Tax, 27) {
		t.Fatalf("expected tax 27, got %v", line.Tax)
	}
	if !closeTo(line.Total, 207) {
		t.Fatalf("expected total 207, got %v", line.Total)
	}
}

func TestComputeLineFixedClampedToSubtotal(t *testing.T) {
	line := ComputeLine(LineInput{Qty: 1, UnitPrice: 50, Discount: NewDiscount(DiscountFixed, 80)}, false, 0.15)
	if !closeTo(line.DiscountAmount, 50) {
		t.Fatalf("expected discount clamped to 50, got %v", line.DiscountAmount)
	}
	if !closeTo(line.PostDiscountAmount, 0) {
		t.Fatalf("expected post-discount 0, got %v", line.PostDiscountAmount)
	}
	if line.Tax != 0 {
		t.Fatalf("expected no tax when VAT disabled, got %v", line.Tax)
	}
}

func TestComputeLinePercentClampedTo100(t *testing.T) {
	line := ComputeLine(LineInput{Qty: 3, UnitPrice: 10, Discount: NewDiscount(DiscountPercent, 250)}, true, 0.15)
	if !closeTo(line.DiscountAmount, 30) {
		t.Fatalf("expected discount capped at subtotal, got %v", line.DiscountAmount)
	}
	if !closeTo(line.Total, 0) {
		t.Fatalf("expected zero total, got %v", line.Total)
	}
}

func TestComputeLineNegativeInputsContributeZero(t *testing.T) {
	for _, in := range []LineInput{
		{Qty: -2, UnitPrice: 100},
		{Qty: 2, UnitPrice: -100},
		{Qty: 0, UnitPrice: 100, Discount: NewDiscount(DiscountFixed, 10)},
	} {
		line := ComputeLine(in, true, 0.15)
		if line.Subtotal != 0 || line.DiscountAmount != 0 || line.Total != 0 {
			t.Fatalf("expected zero contribution for %+v, got %+v", in, line)
		}
	}
}

func TestLineInvariants(t *testing.T) {
	inputs := []LineInput{
		{Qty: 2, UnitPrice: 100, Discount: NewDiscount(DiscountPercent, 12.5)},
		{Qty: 1, UnitPrice: 49.99, Discount: NewDiscount(DiscountFixed, 10)},
		{Qty: 7, UnitPrice: 3.33, Discount: NewDiscount(DiscountFixed, 1000)},
		{Qty: 4, UnitPrice: 0, Discount: NewDiscount(DiscountPercent, 50)},
	}
	for _, in := range inputs {
		line := ComputeLine(in, true, 0.15)
		if line.DiscountAmount < 0 || line.DiscountAmount > line.Subtotal+tolerance {
			t.Fatalf("discount %v out of [0, %v]", line.DiscountAmount, line.Subtotal)
		}
		if !closeTo(line.PostDiscountAmount, line.Subtotal-line.DiscountAmount) {
			t.Fatalf("post-discount invariant violated for %+v", in)
		}
		if !closeTo(line.Total, line.PostDiscountAmount+line.Tax) {
			t.Fatalf("total invariant violated for %+v", in)
		}
		if !closeTo(line.Tax, line.PostDiscountAmount*0.15) {
			t.Fatalf("tax invariant violated for %+v", in)
		}
	}
}

func TestAllocateGlobalPercentUniformRate(t *testing.T) {
	items := []LineInput{
		{Qty: 2, UnitPrice: 100},
		{Qty: 1, UnitPrice: 50},
	}
	out := AllocateGlobalDiscount(items, NewDiscount(DiscountPercent, 10))
	for i, it := range out {
		if it.Discount.Type != DiscountPercent || !closeTo(it.Discount.Value, 10) {
			t.Fatalf("item %d: expected uniform 10%% rate, got %+v", i, it.Discount)
		}
	}
	lines := []LineTotals{
		ComputeLine(out[0], false, 0),
		ComputeLine(out[1], false, 0),
	}
	if !closeTo(lines[0].DiscountAmount, 20) || !closeTo(lines[1].DiscountAmount, 5) {
		t.Fatalf("expected per-line amounts 20 and 5, got %v and %v", lines[0].DiscountAmount, lines[1].DiscountAmount)
	}
}

func TestAllocateGlobalFixedProportional(t *testing.T) {
	items := []LineInput{
		{Qty: 2, UnitPrice: 100},
		{Qty: 1, UnitPrice: 50},
		{Qty: 3, UnitPrice: 20},
	}
	out := AllocateGlobalDiscount(items, NewDiscount(DiscountFixed, 30))
	want := []float64{30 * 200 / 310.0, 30 * 50 / 310.0, 30 * 60 / 310.0}
	var sum float64
	for i, it := range out {
		if it.Discount.Type != DiscountFixed {
			t.Fatalf("item %d: expected fixed discount, got %v", i, it.Discount.Type)
		}
		if !closeTo(it.Discount.Value, want[i]) {
			t.Fatalf("item %d: expected share %v, got %v", i, want[i], it.Discount.Value)
		}
		sum += it.Discount.Value
	}
	if !closeTo(sum, 30) {
		t.Fatalf("expected shares to sum to 30, got %v", sum)
	}
}

func TestAllocateGlobalFixedCapsAtCombinedSubtotal(t *testing.T) {
	items := []LineInput{
		{Qty: 1, UnitPrice: 40},
		{Qty: 1, UnitPrice: 60},
	}
	out := AllocateGlobalDiscount(items, NewDiscount(DiscountFixed, 500))
	lines, totals := ComputeDocument(DocumentInput{Items: out, Mode: ModePerItem, VATEnabled: false})
	if !closeTo(totals.Discount, 100) {
		t.Fatalf("expected distributed discount capped at 100, got %v", totals.Discount)
	}
	for i, l := range lines {
		if l.DiscountAmount > l.Subtotal+tolerance {
			t.Fatalf("item %d discount exceeds its subtotal", i)
		}
	}
}

func TestAllocateGlobalZeroSubtotalDistributesNothing(t *testing.T) {
	items := []LineInput{
		{Qty: 0, UnitPrice: 100},
		{Qty: 2, UnitPrice: 0},
	}
	out := AllocateGlobalDiscount(items, NewDiscount(DiscountFixed, 30))
	for i, it := range out {
		if it.Discount != ZeroDiscount() {
			t.Fatalf("item %d: expected zero discount, got %+v", i, it.Discount)
		}
	}
}

func TestAllocateGlobalNonPositiveValueClearsDiscounts(t *testing.T) {
	items := []LineInput{
		{Qty: 1, UnitPrice: 100, Discount: NewDiscount(DiscountFixed, 10)},
	}
	out := AllocateGlobalDiscount(items, Discount{Type: DiscountPercent, Value: 0})
	if out[0].Discount != ZeroDiscount() {
		t.Fatalf("expected cleared discount, got %+v", out[0].Discount)
	}
}

func TestAllocateGlobalIdempotent(t *testing.T) {
	items := []LineInput{
		{Qty: 2, UnitPrice: 100},
		{Qty: 1, UnitPrice: 50},
	}
	first := AllocateGlobalDiscount(items, NewDiscount(DiscountFixed, 30))
	second := AllocateGlobalDiscount(first, NewDiscount(DiscountFixed, 30))
	for i := range first {
		if !closeTo(first[i].Discount.Value, second[i].Discount.Value) {
			t.Fatalf("item %d: allocation drifted between runs: %v vs %v", i, first[i].Discount.Value, second[i].Discount.Value)
		}
	}
}

func TestResetItemDiscounts(t *testing.T) {
	items := []LineInput{
		{Qty: 2, UnitPrice: 100, Discount: NewDiscount(DiscountFixed, 19.35)},
		{Qty: 1, UnitPrice: 50, Discount: NewDiscount(DiscountPercent, 10)},
	}
	out := ResetItemDiscounts(items)
	for i, it := range out {
		line := ComputeLine(it, true, 0.15)
		if line.DiscountAmount != 0 {
			t.Fatalf("item %d: expected zero discount after mode switch, got %v", i, line.DiscountAmount)
		}
	}
	// Original slice stays untouched.
	if items[0].Discount.Value != 19.35 {
		t.Fatalf("reset mutated its input")
	}
}

func TestComputeDocumentGlobalFixedEndToEnd(t *testing.T) {
	lines, totals := ComputeDocument(DocumentInput{
		Items: []LineInput{
			{Qty: 2, UnitPrice: 100},
			{Qty: 1, UnitPrice: 50},
			{Qty: 3, UnitPrice: 20},
		},
		Mode:       ModeGlobal,
		Global:     NewDiscount(DiscountFixed, 30),
		VATEnabled: true,
		VATRate:    0.15,
	})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !closeTo(totals.BeforeDiscount, 310) {
		t.Fatalf("expected total before discount 310, got %v", totals.BeforeDiscount)
	}
	if !closeTo(totals.Discount, 30) {
		t.Fatalf("expected total discount 30, got %v", totals.Discount)
	}
	if !closeTo(totals.AfterDiscount, 280) {
		t.Fatalf("expected total after discount 280, got %v", totals.AfterDiscount)
	}
	if !closeTo(totals.VAT, 42) {
		t.Fatalf("expected total VAT 42, got %v", totals.VAT)
	}
	if !closeTo(totals.GrandTotal, 322) {
		t.Fatalf("expected grand total 322, got %v", totals.GrandTotal)
	}
	wantDiscounts := []float64{30 * 200 / 310.0, 30 * 50 / 310.0, 30 * 60 / 310.0}
	var sumTotals float64
	for i, l := range lines {
		if !closeTo(l.DiscountAmount, wantDiscounts[i]) {
			t.Fatalf("line %d: expected discount %v, got %v", i, wantDiscounts[i], l.DiscountAmount)
		}
		if !closeTo(l.Tax, l.PostDiscountAmount*0.15) {
			t.Fatalf("line %d: tax mismatch", i)
		}
		sumTotals += l.Total
	}
	if !closeTo(sumTotals, totals.GrandTotal) {
		t.Fatalf("sum of line totals %v disagrees with grand total %v", sumTotals, totals.GrandTotal)
	}
	if !closeTo(totals.GrandTotal, totals.AfterDiscount+totals.VAT) {
		t.Fatalf("grand total cross-check failed: %v vs %v", totals.GrandTotal, totals.AfterDiscount+totals.VAT)
	}
}

func TestComputeDocumentPerItemIgnoresGlobal(t *testing.T) {
	_, totals := ComputeDocument(DocumentInput{
		Items: []LineInput{
			{Qty: 1, UnitPrice: 100, Discount: NewDiscount(DiscountPercent, 10)},
		},
		Mode:       ModePerItem,
		Global:     NewDiscount(DiscountFixed, 50),
		VATEnabled: false,
	})
	if !closeTo(totals.Discount, 10) {
		t.Fatalf("expected per-item discount 10, got %v", totals.Discount)
	}
}

func TestComputeDocumentEmpty(t *testing.T) {
	lines, totals := ComputeDocument(DocumentInput{Mode: ModeGlobal, Global: NewDiscount(DiscountFixed, 30)})
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
	if totals != (DocumentTotals{}) {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestNewDiscountNormalisation(t *testing.T) {
	if d := NewDiscount("PERCENT", 120); d.Type != DiscountPercent || d.Value != 100 {
		t.Fatalf("expected percent clamped to 100, got %+v", d)
	}
	if d := NewDiscount(DiscountFixed, -5); d.Value != 0 {
		t.Fatalf("expected fixed lower clamped to 0, got %+v", d)
	}
	if d := NewDiscount("bogus", 40); d != ZeroDiscount() {
		t.Fatalf("expected unknown type to fall back to zero percent, got %+v", d)
	}
	if d := NewDiscount(DiscountPercent, -3); d.Value != 0 {
		t.Fatalf("expected percent lower clamped to 0, got %+v", d)
	}
}
