package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
)

// =============================================================================
// BONUS PLAN ENDPOINTS
// =============================================================================

// ListBonusPlans returns all bonus plans.
// GET /api/bonus-plans
func (h *Handler) ListBonusPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListBonusPlans(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list bonus plans", err)
		return
	}
	dtos := make([]BonusPlanDTO, 0, len(plans))
	for _, p := range plans {
		dtos = append(dtos, h.Bonus.ToJSON(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBonusPlan returns a single plan.
// GET /api/bonus-plans/{id}
func (h *Handler) GetBonusPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Store.GetBonusPlan(r.Context(), generic.BonusPlanID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get bonus plan", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Bonus.ToJSON(plan))
}

// CreateBonusPlan creates a plan from its JSON definition.
// POST /api/bonus-plans
func (h *Handler) CreateBonusPlan(w http.ResponseWriter, r *http.Request) {
	var req factory.BonusPlanJSON
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	plan, err := h.Bonus.FromJSON(req)
	if err != nil {
		h.fail(w, r, "Invalid bonus plan", err)
		return
	}
	if err := h.Store.CreateBonusPlan(r.Context(), plan); err != nil {
		h.fail(w, r, "Failed to create bonus plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Bonus.ToJSON(plan))
}

// UpdateBonusPlan replaces a plan. Saved payroll runs are unaffected.
// PUT /api/bonus-plans/{id}
func (h *Handler) UpdateBonusPlan(w http.ResponseWriter, r *http.Request) {
	var req factory.BonusPlanJSON
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	plan, err := h.Bonus.FromJSON(req)
	if err != nil {
		h.fail(w, r, "Invalid bonus plan", err)
		return
	}
	if err := h.Store.UpdateBonusPlan(r.Context(), plan); err != nil {
		h.fail(w, r, "Failed to update bonus plan", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Bonus.ToJSON(plan))
}

// DeleteBonusPlan deletes a plan; employees on it are left without one.
// DELETE /api/bonus-plans/{id}
func (h *Handler) DeleteBonusPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteBonusPlan(r.Context(), generic.BonusPlanID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete bonus plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COMMISSIONS AND DEDUCTIONS
// =============================================================================

// ListCommissions returns commissions applied inside ?from&to.
// GET /api/commissions
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	commissions, err := h.Store.CommissionsInRange(r.Context(), p)
	if err != nil {
		h.fail(w, r, "Failed to list commissions", err)
		return
	}
	dtos := make([]AdjustmentDTO, 0, len(commissions))
	for _, c := range commissions {
		dtos = append(dtos, toAdjustmentDTO(c.ID, c.EmployeeID, generic.FormatMoney(c.Amount), c.Label, c.ApplyOn))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCommission records a one-off commission.
// POST /api/commissions
func (h *Handler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	emp, amount, applyOn, label, ok := h.adjustmentArgs(w, r)
	if !ok {
		return
	}
	c := generic.Commission{
		ID:         uuid.NewString(),
		EmployeeID: emp,
		Amount:     amount,
		Label:      label,
		ApplyOn:    applyOn,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.CreateCommission(r.Context(), c); err != nil {
		h.fail(w, r, "Failed to create commission", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(c.ID, c.EmployeeID, generic.FormatMoney(c.Amount), c.Label, c.ApplyOn))
}

// DeleteCommission deletes a commission.
// DELETE /api/commissions/{id}
func (h *Handler) DeleteCommission(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCommission(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete commission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeductions returns deductions applied inside ?from&to.
// GET /api/deductions
func (h *Handler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}
	deductions, err := h.Store.DeductionsInRange(r.Context(), p)
	if err != nil {
		h.fail(w, r, "Failed to list deductions", err)
		return
	}
	dtos := make([]AdjustmentDTO, 0, len(deductions))
	for _, d := range deductions {
		dtos = append(dtos, toAdjustmentDTO(d.ID, d.EmployeeID, generic.FormatMoney(d.Amount), d.Label, d.ApplyOn))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDeduction records a one-off deduction. Amounts are positive.
// POST /api/deductions
func (h *Handler) CreateDeduction(w http.ResponseWriter, r *http.Request) {
	emp, amount, applyOn, label, ok := h.adjustmentArgs(w, r)
	if !ok {
		return
	}
	d := generic.Deduction{
		ID:         uuid.NewString(),
		EmployeeID: emp,
		Amount:     amount,
		Label:      label,
		ApplyOn:    applyOn,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.CreateDeduction(r.Context(), d); err != nil {
		h.fail(w, r, "Failed to create deduction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(d.ID, d.EmployeeID, generic.FormatMoney(d.Amount), d.Label, d.ApplyOn))
}

// DeleteDeduction deletes a deduction.
// DELETE /api/deductions/{id}
func (h *Handler) DeleteDeduction(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDeduction(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete deduction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjustmentArgs(w http.ResponseWriter, r *http.Request) (generic.EmployeeID, decimal.Decimal, generic.Date, string, bool) {
	var req AdjustmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", decimal.Zero, generic.Date{}, "", false
	}
	amount, err := generic.ParseMoney(req.Amount)
	if err != nil {
		h.fail(w, r, "Invalid amount", err)
		return "", decimal.Zero, generic.Date{}, "", false
	}
	if !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be positive", nil)
		return "", decimal.Zero, generic.Date{}, "", false
	}
	applyOn, err := generic.ParseDate(req.ApplyOn)
	if err != nil {
		h.fail(w, r, "Invalid apply_on date", err)
		return "", decimal.Zero, generic.Date{}, "", false
	}
	emp := generic.EmployeeID(req.EmployeeID)
	if _, err := h.Store.GetEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return "", decimal.Zero, generic.Date{}, "", false
	}
	return emp, amount, applyOn, strings.TrimSpace(req.Label), true
}
