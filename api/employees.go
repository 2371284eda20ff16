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
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees, optionally of one branch.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employees, err := h.Store.ListEmployees(ctx, r.URL.Query().Get("branch"))
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		rest, err := h.Store.RestDays(ctx, e.ID)
		if err != nil {
			h.fail(w, r, "Failed to load rest days", err)
			return
		}
		dtos = append(dtos, toEmployeeDTO(e, rest))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	rest, err := h.Store.RestDays(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to load rest days", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp, rest))
}

// CreateEmployee creates a new employee. A missing id gets a UUID.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp, err := req.toEmployee()
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	emp.CreatedAt = time.Now()
	if err := h.Store.CreateEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp, nil))
}

// UpdateEmployee replaces an employee's attributes. Saved payroll runs
// keep the values they were computed with.
// PUT /api/employees/{id}
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EmployeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")

	emp, err := req.toEmployee()
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	if err := h.Store.UpdateEmployee(ctx, emp); err != nil {
		h.fail(w, r, "Failed to update employee", err)
		return
	}
	rest, err := h.Store.RestDays(ctx, emp.ID)
	if err != nil {
		h.fail(w, r, "Failed to load rest days", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp, rest))
}

// DeleteEmployee deletes an employee with no attendance history.
// DELETE /api/employees/{id}
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete employee", err)
		return
	}
	h.cache().Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

// RegisterFace enrols the photo's face under the employee so kiosk
// check-ins can find them.
// POST /api/employees/{id}/register-face
func (h *Handler) RegisterFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))

	var req FaceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeError(w, http.StatusBadRequest, "Image is required", nil)
		return
	}
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if err := h.Matcher.Register(ctx, id, req.Image); err != nil {
		h.fail(w, r, "Failed to register face", err)
		return
	}
	h.logger.Info("face registered", "employee", id)
	writeJSON(w, http.StatusOK, FaceDTO{EmployeeID: string(id), Registered: true})
}

// =============================================================================
// REST DAYS
// =============================================================================

// GetRestDays returns the weekdays an employee does not work (0 = Sunday).
// GET /api/employees/{id}/rest-days
func (h *Handler) GetRestDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	days, err := h.Store.RestDays(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to load rest days", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weekdays": weekdayInts(days)})
}

// SetRestDays replaces the weekday set.
// PUT /api/employees/{id}/rest-days
func (h *Handler) SetRestDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EmployeeID(chi.URLParam(r, "id"))

	var req RestDaysRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	days := make([]time.Weekday, 0, len(req.Weekdays))
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "Weekday must be 0 (Sunday) to 6 (Saturday)", nil)
			return
		}
		days = append(days, time.Weekday(d))
	}

	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if err := h.Store.SetRestDays(ctx, id, days); err != nil {
		h.fail(w, r, "Failed to set rest days", err)
		return
	}
	h.cache().Invalidate(id)

	stored, err := h.Store.RestDays(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to load rest days", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weekdays": weekdayInts(stored)})
}

// =============================================================================
// ATTENDANCE REPORT
// =============================================================================

// GetAttendanceReport classifies every day of the range.
// GET /api/employees/{id}/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetAttendanceReport(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	rep, err := h.Reporter.Report(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), p)
	if err != nil {
		h.fail(w, r, "Failed to build attendance report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep, h.loc))
}

// =============================================================================
// HELPERS
// =============================================================================

func (req EmployeeRequest) toEmployee() (generic.Employee, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return generic.Employee{}, &generic.ValidationError{Field: "name", Message: "required"}
	}
	salary, err := generic.ParseMoney(req.DailySalary)
	if err != nil {
		return generic.Employee{}, &generic.ValidationError{Field: "daily_salary", Message: "must be a decimal with at most 2 places"}
	}
	if salary.IsNegative() {
		return generic.Employee{}, &generic.ValidationError{Field: "daily_salary", Message: "must not be negative"}
	}

	emp := generic.Employee{
		ID:          generic.EmployeeID(req.ID),
		Name:        name,
		Branch:      strings.TrimSpace(req.Branch),
		Title:       strings.TrimSpace(req.Title),
		DailySalary: salary,
	}
	if req.BonusPlanID != nil && *req.BonusPlanID != "" {
		id := generic.BonusPlanID(*req.BonusPlanID)
		emp.BonusPlanID = &id
	}
	if req.HireDate != "" {
		if emp.HireDate, err = generic.ParseDate(req.HireDate); err != nil {
			return generic.Employee{}, err
		}
	}
	if emp.ClockIn, err = optionalClock("clock_in", req.ClockIn); err != nil {
		return generic.Employee{}, err
	}
	if emp.ClockOut, err = optionalClock("clock_out", req.ClockOut); err != nil {
		return generic.Employee{}, err
	}
	return emp, nil
}

func optionalClock(field, s string) (*generic.ClockTime, error) {
	if s == "" {
		return nil, nil
	}
	ct, err := generic.ParseClockTime(s)
	if err != nil {
		return nil, &generic.ValidationError{Field: field, Message: "use HH:MM"}
	}
	return &ct, nil
}

func weekdayInts(days []time.Weekday) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}
