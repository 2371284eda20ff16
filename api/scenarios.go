/*
scenarios.go - Demo scenario endpoints

PURPOSE:

	Populates the database with realistic data for demos. Scenarios are
	YAML files embedded in the factory package; see factory/scenarios/.

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Drop every cached report
 3. Write bonus plans, employees, calendar rows and adjustments
 4. Expand shifts into clock-in/clock-out events, tagging punctuality

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "quincena"}

NOTE:

	Only routed in dev mode. Loading a scenario erases saved payroll runs.

SEE ALSO:
  - factory/scenario.go: YAML schema and loader
*/
package api

import (
	"net/http"
	"time"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
)

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := factory.Scenarios()
	if err != nil {
		h.fail(w, r, "Failed to read scenarios", err)
		return
	}
	dtos := make([]ScenarioDTO, 0, len(all))
	for _, sc := range all {
		dtos = append(dtos, ScenarioDTO{ID: sc.ID, Name: sc.Name, Description: sc.Description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the last loaded scenario, or null.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	sc, ok, err := factory.FindScenario(current)
	if err != nil {
		h.fail(w, r, "Failed to read scenarios", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: sc.ID, Name: sc.Name, Description: sc.Description})
}

// LoadScenario resets the database and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LoadScenarioRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sc, ok, err := factory.FindScenario(req.ScenarioID)
	if err != nil {
		h.fail(w, r, "Failed to read scenarios", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	h.cache().InvalidateAll()
	h.currentScenario = ""

	loader := factory.NewScenarioLoader(h.Store, h.loc, func(at time.Time, scheduled *generic.ClockTime) generic.Punctuality {
		return attendance.Evaluate(at, scheduled, h.loc)
	})
	if err := loader.Load(ctx, sc); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	h.cache().InvalidateAll()
	h.currentScenario = sc.ID
	h.logger.Info("scenario loaded", "scenario", sc.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": sc.ID,
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	h.cache().InvalidateAll()
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
