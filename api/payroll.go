package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/payroll"
)

// =============================================================================
// PAYROLL ENDPOINTS
// =============================================================================

// CalculatePayroll previews a payroll over a period. Nothing is saved.
// POST /api/payroll/calculate
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := generic.NewPeriod(req.From, req.To)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	items, err := h.Payroll.Compute(r.Context(), p)
	if err != nil {
		h.fail(w, r, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(generic.PayrollRun{Period: p, Items: items}, true))
}

// SavePayrollRun recomputes the period server-side and freezes the result.
// Saving the same period twice creates two runs.
// POST /api/payroll/runs
func (h *Handler) SavePayrollRun(w http.ResponseWriter, r *http.Request) {
	var req SaveRunRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := generic.NewPeriod(req.From, req.To)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	run, err := h.Payroll.Save(r.Context(), req.Name, p)
	if err != nil {
		h.fail(w, r, "Failed to save payroll run", err)
		return
	}
	h.logger.Info("payroll run saved", "run", run.ID, "period", p.String(), "items", len(run.Items))
	writeJSON(w, http.StatusCreated, toRunDTO(run, true))
}

// ListPayrollRuns returns run headers, newest first.
// GET /api/payroll/runs
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListPayrollRuns(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list payroll runs", err)
		return
	}
	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run, false))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayrollRun returns a saved run with its frozen line items.
// GET /api/payroll/runs/{id}
func (h *Handler) GetPayrollRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetPayrollRun(r.Context(), generic.RunID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get payroll run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run, true))
}

// GetReceipt renders one employee's receipt from a saved run.
// GET /api/payroll/runs/{id}/receipts/{employee_id}
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetPayrollRun(r.Context(), generic.RunID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get payroll run", err)
		return
	}
	item, ok := run.Item(generic.EmployeeID(chi.URLParam(r, "employee_id")))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee is not part of this run", nil)
		return
	}

	var buf bytes.Buffer
	if err := payroll.RenderReceipt(&buf, h.issuer, run, item); err != nil {
		h.fail(w, r, "Failed to render receipt", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
