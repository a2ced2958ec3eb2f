package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/backend-billing/internal/cache"
	"github.com/noah-isme/backend-billing/internal/numbering"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

// exportMaxRows bounds how many documents one export pass will load.
const exportMaxRows = 5000

// ItemInput is the write payload for one line.
type ItemInput struct {
	Description   string  `json:"description" validate:"max=500"`
	Qty           float64 `json:"qty"`
	UnitPrice     float64 `json:"unit_price"`
	DiscountType  string  `json:"discount_type" validate:"omitempty,oneof=percent fixed"`
	DiscountValue float64 `json:"discount_value"`
}

// CreateInput is the write payload for a new document. Out-of-range numeric
// values are clamped by the pricing core, not rejected here; the payload
// validation only guards structure.
type CreateInput struct {
	Kind                string      `json:"kind" validate:"omitempty,oneof=quotation invoice"`
	CustomerName        string      `json:"customer_name" validate:"max=200"`
	Notes               string      `json:"notes" validate:"max=2000"`
	DiscountMode        string      `json:"discount_mode" validate:"omitempty,oneof=per_item global"`
	GlobalDiscountType  string      `json:"global_discount_type" validate:"omitempty,oneof=percent fixed"`
	GlobalDiscountValue float64     `json:"global_discount_value"`
	VATEnabled          *bool       `json:"vat_enabled"`
	CreatedAt           *time.Time  `json:"created_at"`
	Items               []ItemInput `json:"items" validate:"dive"`
}

// UpdateInput is the write payload for replacing a document's raw state.
// CreatedAt is absent on purpose: the creation timestamp is immutable.
type UpdateInput struct {
	CustomerName        string      `json:"customer_name" validate:"max=200"`
	Notes               string      `json:"notes" validate:"max=2000"`
	DiscountMode        string      `json:"discount_mode" validate:"omitempty,oneof=per_item global"`
	GlobalDiscountType  string      `json:"global_discount_type" validate:"omitempty,oneof=percent fixed"`
	GlobalDiscountValue float64     `json:"global_discount_value"`
	VATEnabled          *bool       `json:"vat_enabled"`
	Items               []ItemInput `json:"items" validate:"dive"`
}

// Service owns document lifecycle and derivation. It persists raw inputs only
// and reruns the pricing reducer plus the numberer on every read.
type Service struct {
	Store             Store
	Cache             *cache.Cache
	VATRate           float64
	VATEnabledDefault bool
	Prefix            func(Kind) string
}

func (s *Service) prefix(kind Kind) string {
	if s != nil && s.Prefix != nil {
		return s.Prefix(kind)
	}
	return "DOC"
}

// Create persists a new document and returns its full read model.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("document service not configured")
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return View{}, err
	}
	doc := Document{
		OwnerID:      ownerID,
		Kind:         kind,
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
		VATEnabled:   s.VATEnabledDefault,
		Items:        itemsFromInput(in.Items),
	}
	if in.VATEnabled != nil {
		doc.VATEnabled = *in.VATEnabled
	}
	if in.CreatedAt != nil {
		doc.CreatedAt = in.CreatedAt.UTC()
	}
	applyDiscountConfig(&doc, in.DiscountMode, in.GlobalDiscountType, in.GlobalDiscountValue)

	stored, err := s.Store.Create(ctx, doc)
	if err != nil {
		countWrite("create", "error")
		return View{}, err
	}
	countWrite("create", "ok")
	s.invalidateRefs(ctx, ownerID, kind)
	return s.view(ctx, stored), nil
}

// Get loads one document and derives its full read model.
func (s *Service) Get(ctx context.Context, ownerID, id string) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("document service not configured")
	}
	doc, err := s.Store.Get(ctx, ownerID, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, doc), nil
}

// List returns a page of summaries plus the collection size. Every row's
// totals and number come from the same reducer and numberer as the detail,
// print and export surfaces.
func (s *Service) List(ctx context.Context, ownerID string, kind Kind, page, perPage int) ([]Summary, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("document service not configured")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	total, err := s.Store.Count(ctx, ownerID, kind)
	if err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * perPage
	docs, err := s.Store.List(ctx, ownerID, kind, int32(perPage), int32(offset))
	if err != nil {
		return nil, 0, err
	}
	numbers := s.numbers(ctx, ownerID, kind)
	summaries := make([]Summary, 0, len(docs))
	for i, doc := range docs {
		number, ok := numbers[doc.ID]
		if !ok {
			number = numbering.Fallback(s.prefix(kind), offset+i)
		}
		_, totals := pricing.ComputeDocument(doc.pricingInput(s.VATRate))
		countCompute(kind)
		summaries = append(summaries, Summary{
			ID:            doc.ID,
			Kind:          string(doc.Kind),
			DisplayNumber: number,
			CustomerName:  doc.CustomerName,
			CreatedAt:     doc.CreatedAt,
			Totals:        totalsFromPricing(totals),
		})
	}
	return summaries, total, nil
}

// Update replaces a document's raw state. Switching the discount mode from
// global back to per-item zeroes every line's discount: the previous
// allocation is deliberately discarded, never converted into manual values.
func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("document service not configured")
	}
	existing, err := s.Store.Get(ctx, ownerID, id)
	if err != nil {
		return View{}, err
	}
	doc := Document{
		ID:           id,
		OwnerID:      ownerID,
		Kind:         existing.Kind,
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
		VATEnabled:   existing.VATEnabled,
		Items:        itemsFromInput(in.Items),
	}
	if in.VATEnabled != nil {
		doc.VATEnabled = *in.VATEnabled
	}
	applyDiscountConfig(&doc, in.DiscountMode, in.GlobalDiscountType, in.GlobalDiscountValue)

	if existing.DiscountMode == pricing.ModeGlobal && doc.DiscountMode == pricing.ModePerItem {
		for i := range doc.Items {
			doc.Items[i].DiscountType = pricing.DiscountPercent
			doc.Items[i].DiscountValue = 0
		}
	}

	stored, err := s.Store.Replace(ctx, doc)
	if err != nil {
		countWrite("update", "error")
		return View{}, err
	}
	countWrite("update", "ok")
	s.invalidateRefs(ctx, ownerID, doc.Kind)
	return s.view(ctx, stored), nil
}

// Delete removes a document and invalidates the sibling snapshot, since every
// remaining sibling created later shifts down one rank.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("document service not configured")
	}
	doc, err := s.Store.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, ownerID, id); err != nil {
		countWrite("delete", "error")
		return err
	}
	countWrite("delete", "ok")
	s.invalidateRefs(ctx, ownerID, doc.Kind)
	return nil
}

// ExportRows derives the full collection for spreadsheet export and print
// batches: one computed summary per document, numbered like every other
// surface.
func (s *Service) ExportRows(ctx context.Context, ownerID string, kind Kind) ([]Summary, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("document service not configured")
	}
	docs, err := s.Store.List(ctx, ownerID, kind, exportMaxRows, 0)
	if err != nil {
		return nil, err
	}
	numbers := s.numbers(ctx, ownerID, kind)
	rows := make([]Summary, 0, len(docs))
	for i, doc := range docs {
		number, ok := numbers[doc.ID]
		if !ok {
			number = numbering.Fallback(s.prefix(kind), i)
		}
		_, totals := pricing.ComputeDocument(doc.pricingInput(s.VATRate))
		countCompute(kind)
		rows = append(rows, Summary{
			ID:            doc.ID,
			Kind:          string(doc.Kind),
			DisplayNumber: number,
			CustomerName:  doc.CustomerName,
			CreatedAt:     doc.CreatedAt,
			Totals:        totalsFromPricing(totals),
		})
	}
	return rows, nil
}

func (s *Service) view(ctx context.Context, doc Document) View {
	lines, totals := pricing.ComputeDocument(doc.pricingInput(s.VATRate))
	countCompute(doc.Kind)

	lineViews := make([]LineView, len(doc.Items))
	for i, it := range doc.Items {
		lineViews[i] = LineView{
			ID:                 it.ID,
			Description:        it.Description,
			Qty:                it.Qty,
			UnitPrice:          it.UnitPrice,
			DiscountType:       string(it.DiscountType),
			DiscountValue:      it.DiscountValue,
			Subtotal:           lines[i].Subtotal,
			DiscountAmount:     lines[i].DiscountAmount,
			PostDiscountAmount: lines[i].PostDiscountAmount,
			Tax:                lines[i].Tax,
			Total:              lines[i].Total,
		}
	}

	view := View{
		ID:            doc.ID,
		Kind:          string(doc.Kind),
		DisplayNumber: s.numberFor(ctx, doc),
		CustomerName:  doc.CustomerName,
		Notes:         doc.Notes,
		DiscountMode:  string(doc.DiscountMode),
		VATEnabled:    doc.VATEnabled,
		VATRate:       s.VATRate,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
		Lines:         lineViews,
		Totals:        totalsFromPricing(totals),
	}
	if doc.DiscountMode == pricing.ModeGlobal {
		view.GlobalDiscountType = string(doc.GlobalDiscountType)
		view.GlobalDiscountValue = doc.GlobalDiscountValue
	}
	return view
}

func (s *Service) numberFor(ctx context.Context, doc Document) string {
	numbers := s.numbers(ctx, doc.OwnerID, doc.Kind)
	if number, ok := numbers[doc.ID]; ok {
		return number
	}
	// Degraded: the document itself is the only data available.
	countFallback()
	return numbering.Fallback(s.prefix(doc.Kind), 0)
}

// numbers produces display numbers over the entire sibling collection,
// serving the reference snapshot from cache when warm. A nil map signals the
// degraded path; callers fall back to index-based numbers.
func (s *Service) numbers(ctx context.Context, ownerID string, kind Kind) map[string]string {
	key := refsKey(ownerID, kind)
	var refs []numbering.Ref
	hit, err := s.Cache.GetJSON(ctx, key, &refs)
	if err != nil || !hit {
		countCacheLookup("miss")
		refs, err = s.Store.ListRefs(ctx, ownerID, kind)
		if err != nil {
			countFallback()
			return nil
		}
		_ = s.Cache.SetJSON(ctx, key, refs)
	} else {
		countCacheLookup("hit")
	}
	return numbering.Assign(refs, s.prefix(kind))
}

func (s *Service) invalidateRefs(ctx context.Context, ownerID string, kind Kind) {
	_ = s.Cache.Invalidate(ctx, refsKey(ownerID, kind))
}

func refsKey(ownerID string, kind Kind) string {
	return fmt.Sprintf("docrefs:%s:%s", ownerID, kind)
}

func itemsFromInput(items []ItemInput) []Item {
	out := make([]Item, len(items))
	for i, in := range items {
		d := pricing.NewDiscount(pricing.DiscountType(in.DiscountType), in.DiscountValue)
		out[i] = Item{
			Description:   in.Description,
			Qty:           in.Qty,
			UnitPrice:     in.UnitPrice,
			DiscountType:  d.Type,
			DiscountValue: d.Value,
			Position:      i,
		}
	}
	return out
}

// applyDiscountConfig normalises the discount configuration. Global fields
// are meaningful only in global mode and are cleared otherwise.
func applyDiscountConfig(doc *Document, mode, globalType string, globalValue float64) {
	doc.DiscountMode = pricing.ParseMode(mode)
	if doc.DiscountMode == pricing.ModeGlobal {
		d := pricing.NewDiscount(pricing.DiscountType(globalType), globalValue)
		doc.GlobalDiscountType = d.Type
		doc.GlobalDiscountValue = d.Value
		return
	}
	doc.GlobalDiscountType = pricing.DiscountPercent
	doc.GlobalDiscountValue = 0
}

func countCompute(kind Kind) {
	if obs.DocumentComputeTotal != nil {
		obs.DocumentComputeTotal.WithLabelValues(string(kind)).Inc()
	}
}

func countWrite(op, result string) {
	if obs.DocumentWriteTotal != nil {
		obs.DocumentWriteTotal.WithLabelValues(op, result).Inc()
	}
}

func countFallback() {
	if obs.NumberingFallbackTotal != nil {
		obs.NumberingFallbackTotal.Inc()
	}
}

func countCacheLookup(result string) {
	if obs.SnapshotCacheTotal != nil {
		obs.SnapshotCacheTotal.WithLabelValues(result).Inc()
	}
}
