package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/document"
	"github.com/noah-isme/backend-billing/internal/numbering"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

const testOwner = "11111111-1111-1111-1111-111111111111"

type memStore struct {
	docs []document.Document
}

func (m *memStore) Create(_ context.Context, doc document.Document) (document.Document, error) {
	m.docs = append(m.docs, doc)
	return doc, nil
}

func (m *memStore) Get(_ context.Context, ownerID, id string) (document.Document, error) {
	for _, doc := range m.docs {
		if doc.ID == id && doc.OwnerID == ownerID {
			return doc, nil
		}
	}
	return document.Document{}, document.ErrNotFound
}

func (m *memStore) List(_ context.Context, ownerID string, kind document.Kind, limit, offset int32) ([]document.Document, error) {
	var out []document.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Kind == kind {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, ownerID string, kind document.Kind) (int64, error) {
	var n int64
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListRefs(_ context.Context, ownerID string, kind document.Kind) ([]numbering.Ref, error) {
	var refs []numbering.Ref
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Kind == kind {
			refs = append(refs, numbering.Ref{ID: doc.ID, CreatedAt: doc.CreatedAt})
		}
	}
	return refs, nil
}

func (m *memStore) Replace(_ context.Context, doc document.Document) (document.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == doc.ID && m.docs[i].OwnerID == doc.OwnerID {
			m.docs[i] = doc
			return doc, nil
		}
	}
	return document.Document{}, document.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, ownerID, id string) error {
	for i := range m.docs {
		if m.docs[i].ID == id && m.docs[i].OwnerID == ownerID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return document.ErrNotFound
}

func seededStore() *memStore {
	return &memStore{docs: []document.Document{
		{
			ID:           "00000000-0000-0000-0000-000000000001",
			OwnerID:      testOwner,
			Kind:         document.KindInvoice,
			CustomerName: "Acme",
			DiscountMode: pricing.ModePerItem,
			VATEnabled:   true,
			CreatedAt:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
			Items: []document.Item{
				{Description: "Design work", Qty: 2, UnitPrice: 100,
					DiscountType: pricing.DiscountPercent, DiscountValue: 10},
			},
		},
	}}
}

func newRenderRouter(store document.Store) http.Handler {
	svc := &document.Service{
		Store:   store,
		VATRate: 0.15,
		Prefix:  func(document.Kind) string { return "INV" },
	}
	h := NewHandler(HandlerConfig{Documents: svc})
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(common.RequireOwner)
		h.Routes(r)
	})
	return r
}

func TestPrintEndpoint(t *testing.T) {
	router := newRenderRouter(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/00000000-0000-0000-0000-000000000001/print", nil)
	req.Header.Set(common.OwnerHeader, testOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "INV-2025-001.pdf")
	require.True(t, len(rec.Body.Bytes()) > 0)
}

func TestPrintEndpointNotFound(t *testing.T) {
	router := newRenderRouter(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/00000000-0000-0000-0000-000000000099/print", nil)
	req.Header.Set(common.OwnerHeader, testOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	router := newRenderRouter(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/export?kind=invoice", nil)
	req.Header.Set(common.OwnerHeader, testOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	body := rec.Body.String()
	require.Contains(t, body, "INV-2025-001")
	require.Contains(t, body, "Acme")
	require.Contains(t, body, "207.00")
}

func TestExportEndpointRejectsUnknownKind(t *testing.T) {
	router := newRenderRouter(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/export?kind=receipt", nil)
	req.Header.Set(common.OwnerHeader, testOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpointRequiresOwner(t *testing.T) {
	router := newRenderRouter(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
