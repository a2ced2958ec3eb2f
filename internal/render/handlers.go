package render

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/document"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// Handler exposes the print and export endpoints. Both read through the
// document service so their figures match the JSON API exactly.
type Handler struct {
	documents *document.Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Documents *document.Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{documents: cfg.Documents}
}

// Routes mounts the render endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/documents/export", h.Export)
	r.Get("/documents/{id}/print", h.Print)
}

// Print handles GET /api/v1/documents/{id}/print.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "render handler not configured", nil)
		return
	}
	ownerID, ok := common.OwnerID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner not identified", nil)
		return
	}
	view, err := h.documents.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	data, err := BuildPDF(view)
	if err != nil {
		countRender("pdf", "error")
		common.JSONError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not render document", nil)
		return
	}
	countRender("pdf", "ok")

	filename := fmt.Sprintf("%s.pdf", view.DisplayNumber)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// Export handles GET /api/v1/documents/export?kind=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "render handler not configured", nil)
		return
	}
	ownerID, ok := common.OwnerID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner not identified", nil)
		return
	}
	kind, err := document.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rows, err := h.documents.ExportRows(r.Context(), ownerID, kind)
	if err != nil {
		countRender("csv", "error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		countRender("csv", "error")
		common.JSONError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not export documents", nil)
		return
	}
	countRender("csv", "ok")

	filename := fmt.Sprintf("%ss-%s.csv", kind, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = buf.WriteTo(w)
}

func countRender(format, result string) {
	if obs.ExportRenderTotal != nil {
		obs.ExportRenderTotal.WithLabelValues(format, result).Inc()
	}
}
