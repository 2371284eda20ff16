package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns holidays, optionally inside ?from&to.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	p, err := optionalPeriodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	holidays, err := h.Store.HolidaysInRange(r.Context(), p)
	if err != nil {
		h.fail(w, r, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{ID: hol.ID, Date: hol.Date.String(), Name: hol.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates an organisation-wide holiday. One per date.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{ID: uuid.NewString(), Date: date, Name: strings.TrimSpace(req.Name)}
	if err := h.Store.CreateHoliday(r.Context(), holiday); err != nil {
		h.fail(w, r, "Failed to create holiday", err)
		return
	}
	h.cache().InvalidateAll()

	writeJSON(w, http.StatusCreated, HolidayDTO{ID: holiday.ID, Date: date.String(), Name: holiday.Name})
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete holiday", err)
		return
	}
	h.cache().InvalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VACATIONS AND PERMISSIONS
// =============================================================================

// ListVacations returns an employee's vacations, optionally intersecting ?from&to.
// GET /api/employees/{id}/vacations
func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, p, ok := h.rangeListArgs(w, r)
	if !ok {
		return
	}
	vacations, err := h.Store.VacationsInRange(ctx, id, p)
	if err != nil {
		h.fail(w, r, "Failed to list vacations", err)
		return
	}
	dtos := make([]RangeDTO, 0, len(vacations))
	for _, v := range vacations {
		dtos = append(dtos, toRangeDTO(v.ID, v.EmployeeID, v.Start, v.End, "", v.CreatedAt))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVacation records a vacation range.
// POST /api/employees/{id}/vacations
func (h *Handler) CreateVacation(w http.ResponseWriter, r *http.Request) {
	id, p, _, ok := h.rangeCreateArgs(w, r)
	if !ok {
		return
	}
	v := generic.VacationRange{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Start:      p.Start,
		End:        p.End,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.CreateVacation(r.Context(), v); err != nil {
		h.fail(w, r, "Failed to create vacation", err)
		return
	}
	h.cache().Invalidate(id)
	writeJSON(w, http.StatusCreated, toRangeDTO(v.ID, v.EmployeeID, v.Start, v.End, "", v.CreatedAt))
}

// DeleteVacation deletes a vacation range.
// DELETE /api/vacations/{id}
func (h *Handler) DeleteVacation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	v, err := h.Store.GetVacation(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to get vacation", err)
		return
	}
	if err := h.Store.DeleteVacation(ctx, id); err != nil {
		h.fail(w, r, "Failed to delete vacation", err)
		return
	}
	h.cache().Invalidate(v.EmployeeID)
	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions returns an employee's permissions in creation order.
// GET /api/employees/{id}/permissions
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, p, ok := h.rangeListArgs(w, r)
	if !ok {
		return
	}
	permissions, err := h.Store.PermissionsInRange(ctx, id, p)
	if err != nil {
		h.fail(w, r, "Failed to list permissions", err)
		return
	}
	dtos := make([]RangeDTO, 0, len(permissions))
	for _, pr := range permissions {
		dtos = append(dtos, toRangeDTO(pr.ID, pr.EmployeeID, pr.Start, pr.End, pr.Reason, pr.CreatedAt))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePermission records an authorised absence. A non-empty reason must
// be a code from the permission-reasons catalogue.
// POST /api/employees/{id}/permissions
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	id, p, req, ok := h.rangeCreateArgs(w, r)
	if !ok {
		return
	}
	reason, err := h.permissionReason(r.Context(), req.Reason)
	if err != nil {
		h.fail(w, r, "Invalid reason", err)
		return
	}
	pr := generic.PermissionRange{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Start:      p.Start,
		End:        p.End,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.CreatePermission(r.Context(), pr); err != nil {
		h.fail(w, r, "Failed to create permission", err)
		return
	}
	h.cache().Invalidate(id)
	writeJSON(w, http.StatusCreated, toRangeDTO(pr.ID, pr.EmployeeID, pr.Start, pr.End, pr.Reason, pr.CreatedAt))
}

// DeletePermission deletes a permission range.
// DELETE /api/permissions/{id}
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	pr, err := h.Store.GetPermission(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to get permission", err)
		return
	}
	if err := h.Store.DeletePermission(ctx, id); err != nil {
		h.fail(w, r, "Failed to delete permission", err)
		return
	}
	h.cache().Invalidate(pr.EmployeeID)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) rangeListArgs(w http.ResponseWriter, r *http.Request) (generic.EmployeeID, generic.Period, bool) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return "", generic.Period{}, false
	}
	p, err := optionalPeriodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return "", generic.Period{}, false
	}
	return id, p, true
}

func (h *Handler) rangeCreateArgs(w http.ResponseWriter, r *http.Request) (generic.EmployeeID, generic.Period, RangeRequest, bool) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	var req RangeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", generic.Period{}, req, false
	}
	p, err := generic.NewPeriod(req.From, req.To)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return "", generic.Period{}, req, false
	}
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return "", generic.Period{}, req, false
	}
	return id, p, req, true
}

func toRangeDTO(id string, emp generic.EmployeeID, start, end generic.Date, reason string, created time.Time) RangeDTO {
	dto := RangeDTO{
		ID:         id,
		EmployeeID: string(emp),
		From:       start.String(),
		To:         end.String(),
		Reason:     reason,
	}
	if !created.IsZero() {
		dto.CreatedAt = created.Format(time.RFC3339)
	}
	return dto
}
