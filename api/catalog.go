package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// CATALOGUE ENDPOINTS
// =============================================================================

// catalogRoutes mounts list, create, update and delete for one catalogue kind.
func (h *Handler) catalogRoutes(kind generic.CatalogKind) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.listCatalog(kind))
		r.Post("/", h.createCatalogEntry(kind))
		r.Put("/{id}", h.updateCatalogEntry(kind))
		r.Delete("/{id}", h.deleteCatalogEntry(kind))
	}
}

// GET /api/{titles,branches,permission-reasons}
func (h *Handler) listCatalog(kind generic.CatalogKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := h.Store.ListCatalog(r.Context(), kind)
		if err != nil {
			h.fail(w, r, "Failed to list catalogue", err)
			return
		}
		dtos := make([]CatalogEntryDTO, 0, len(entries))
		for _, e := range entries {
			dtos = append(dtos, toCatalogEntryDTO(e))
		}
		writeJSON(w, http.StatusOK, dtos)
	}
}

// POST /api/{titles,branches,permission-reasons}
func (h *Handler) createCatalogEntry(kind generic.CatalogKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := h.catalogEntryArgs(w, r, kind)
		if !ok {
			return
		}
		e.ID = uuid.NewString()
		if err := h.Store.CreateCatalogEntry(r.Context(), e); err != nil {
			h.fail(w, r, "Failed to create catalogue entry", err)
			return
		}
		writeJSON(w, http.StatusCreated, toCatalogEntryDTO(e))
	}
}

// PUT /api/{titles,branches,permission-reasons}/{id}
func (h *Handler) updateCatalogEntry(kind generic.CatalogKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := h.catalogEntryArgs(w, r, kind)
		if !ok {
			return
		}
		e.ID = chi.URLParam(r, "id")
		if err := h.Store.UpdateCatalogEntry(r.Context(), e); err != nil {
			h.fail(w, r, "Failed to update catalogue entry", err)
			return
		}
		writeJSON(w, http.StatusOK, toCatalogEntryDTO(e))
	}
}

// DELETE /api/{titles,branches,permission-reasons}/{id}
//
// Employees keep their title and branch text and saved permissions keep
// their reason.
func (h *Handler) deleteCatalogEntry(kind generic.CatalogKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Store.DeleteCatalogEntry(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			h.fail(w, r, "Failed to delete catalogue entry", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) catalogEntryArgs(w http.ResponseWriter, r *http.Request, kind generic.CatalogKind) (generic.CatalogEntry, bool) {
	var req CatalogEntryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return generic.CatalogEntry{}, false
	}
	e := generic.CatalogEntry{Kind: kind, Name: strings.TrimSpace(req.Name), DailySalary: decimal.Zero}
	if e.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return e, false
	}
	if req.DailySalary != "" {
		if kind != generic.CatalogTitles {
			writeError(w, http.StatusBadRequest, "Only titles carry a daily salary", nil)
			return e, false
		}
		salary, err := generic.ParseMoney(req.DailySalary)
		if err != nil {
			h.fail(w, r, "Invalid daily salary", err)
			return e, false
		}
		if salary.IsNegative() {
			writeError(w, http.StatusBadRequest, "Daily salary must not be negative", nil)
			return e, false
		}
		e.DailySalary = salary
	}
	return e, true
}

// permissionReason checks a permission's reason against the catalogue.
// An empty reason is allowed.
func (h *Handler) permissionReason(ctx context.Context, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", nil
	}
	reasons, err := h.Store.ListCatalog(ctx, generic.CatalogPermissionReasons)
	if err != nil {
		return "", err
	}
	for _, e := range reasons {
		if e.Name == reason {
			return reason, nil
		}
	}
	return "", &generic.ValidationError{Field: "reason", Message: "unknown reason code " + reason}
}

func toCatalogEntryDTO(e generic.CatalogEntry) CatalogEntryDTO {
	dto := CatalogEntryDTO{ID: e.ID, Name: e.Name}
	if e.Kind == generic.CatalogTitles {
		dto.DailySalary = generic.FormatMoney(e.DailySalary)
	}
	return dto
}
