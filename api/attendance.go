package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
)

// =============================================================================
// ATTENDANCE INGESTION
// =============================================================================

// CheckIn matches a kiosk photo and records the punch. Without an explicit
// kind, the first punch of the local day is a clock-in and later ones are
// clock-outs.
// POST /api/attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CheckInRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeError(w, http.StatusBadRequest, "Image is required", nil)
		return
	}

	match, err := h.Matcher.Match(ctx, req.Image)
	if err != nil {
		h.fail(w, r, "Face not recognised", err)
		return
	}

	ev, emp, err := h.Ledger.Record(ctx, attendance.Punch{
		EmployeeID:     match.EmployeeID,
		Kind:           generic.EventKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Source:         "kiosk",
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.fail(w, r, "Failed to record attendance", err)
		return
	}

	dto := toEventDTO(ev, emp.Name, h.loc)
	h.Feed.Publish(dto)
	writeJSON(w, http.StatusCreated, dto)
}

// RecordEvent appends a manual punch with an explicit kind and timestamp.
// POST /api/attendance/events
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req PunchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	kind := generic.EventKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Kind must be CLOCK_IN or CLOCK_OUT", nil)
		return
	}
	at, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid at (use RFC 3339)", err)
		return
	}

	ev, emp, err := h.Ledger.Record(r.Context(), attendance.Punch{
		EmployeeID:     generic.EmployeeID(req.EmployeeID),
		Kind:           kind,
		At:             at,
		Source:         "admin",
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.fail(w, r, "Failed to record attendance", err)
		return
	}

	dto := toEventDTO(ev, emp.Name, h.loc)
	h.Feed.Publish(dto)
	writeJSON(w, http.StatusCreated, dto)
}

// ListEvents returns the event log, newest first.
// GET /api/attendance/events?employee_id&from&to&limit
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter generic.EventFilter
	if id := q.Get("employee_id"); id != "" {
		emp := generic.EmployeeID(id)
		filter.EmployeeID = &emp
	}
	p, err := optionalPeriodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	if !p.Start.IsZero() {
		filter.From, filter.To = p.Bounds(h.loc)
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = n
	}

	events, err := h.Store.ListEvents(ctx, filter)
	if err != nil {
		h.fail(w, r, "Failed to list events", err)
		return
	}
	employees, err := h.Store.ListEmployees(ctx, "")
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}
	names := make(map[generic.EmployeeID]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, toEventDTO(ev, names[ev.EmployeeID], h.loc))
	}
	writeJSON(w, http.StatusOK, dtos)
}
