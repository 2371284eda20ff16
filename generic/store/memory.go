// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	employees   map[generic.EmployeeID]generic.Employee
	events      map[generic.EmployeeID][]generic.AttendanceEvent // sorted by At
	idempotency map[string]bool

	holidays    map[string]generic.Holiday
	restDays    map[generic.EmployeeID][]time.Weekday
	vacations   map[string]generic.VacationRange
	permissions map[string]generic.PermissionRange

	bonusPlans  map[generic.BonusPlanID]generic.BonusPlan
	commissions map[string]generic.Commission
	deductions  map[string]generic.Deduction

	catalog map[string]generic.CatalogEntry

	runs map[generic.RunID]generic.PayrollRun
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.employees = make(map[generic.EmployeeID]generic.Employee)
	m.events = make(map[generic.EmployeeID][]generic.AttendanceEvent)
	m.idempotency = make(map[string]bool)
	m.holidays = make(map[string]generic.Holiday)
	m.restDays = make(map[generic.EmployeeID][]time.Weekday)
	m.vacations = make(map[string]generic.VacationRange)
	m.permissions = make(map[string]generic.PermissionRange)
	m.bonusPlans = make(map[generic.BonusPlanID]generic.BonusPlan)
	m.commissions = make(map[string]generic.Commission)
	m.deductions = make(map[string]generic.Deduction)
	m.catalog = make(map[string]generic.CatalogEntry)
	m.runs = make(map[generic.RunID]generic.PayrollRun)
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) CreateEmployee(_ context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[e.ID]; ok {
		return fmt.Errorf("employee %s: %w", e.ID, generic.ErrDuplicateID)
	}
	if err := m.checkPlanLocked(e.BonusPlanID); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) UpdateEmployee(_ context.Context, e generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.employees[e.ID]
	if !ok {
		return generic.ErrEmployeeNotFound
	}
	if err := m.checkPlanLocked(e.BonusPlanID); err != nil {
		return err
	}
	e.CreatedAt = old.CreatedAt
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) checkPlanLocked(id *generic.BonusPlanID) error {
	if id == nil {
		return nil
	}
	if _, ok := m.bonusPlans[*id]; !ok {
		return generic.ErrBonusPlanNotFound
	}
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *Memory) ListEmployees(_ context.Context, branch string) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.Employee
	for _, e := range m.employees {
		if branch == "" || e.Branch == branch {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id generic.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return generic.ErrEmployeeNotFound
	}
	if len(m.events[id]) > 0 {
		return generic.ErrEmployeeReferenced
	}
	delete(m.employees, id)
	// Same rows ON DELETE CASCADE removes in SQLite.
	delete(m.restDays, id)
	for k, v := range m.vacations {
		if v.EmployeeID == id {
			delete(m.vacations, k)
		}
	}
	for k, pr := range m.permissions {
		if pr.EmployeeID == id {
			delete(m.permissions, k)
		}
	}
	for k, c := range m.commissions {
		if c.EmployeeID == id {
			delete(m.commissions, k)
		}
	}
	for k, d := range m.deductions {
		if d.EmployeeID == id {
			delete(m.deductions, k)
		}
	}
	return nil
}

// checkRowLocked mirrors a child table's employee foreign key and primary key.
func checkRowLocked[V any](m *Memory, rows map[string]V, what, id string, emp generic.EmployeeID) error {
	if _, ok := m.employees[emp]; !ok {
		return generic.ErrEmployeeNotFound
	}
	if _, ok := rows[id]; ok {
		return fmt.Errorf("%s %s: %w", what, id, generic.ErrDuplicateID)
	}
	return nil
}

// =============================================================================
// EVENTS - Append-only
// =============================================================================

func (m *Memory) AppendEvent(_ context.Context, ev generic.AttendanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.IdempotencyKey != "" && m.idempotency[ev.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	if _, ok := m.employees[ev.EmployeeID]; !ok {
		return generic.ErrEmployeeNotFound
	}

	evs := m.events[ev.EmployeeID]

	// Binary search for insertion point; equal timestamps keep arrival order.
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].At.After(ev.At)
	})
	evs = append(evs, generic.AttendanceEvent{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.events[ev.EmployeeID] = evs

	if ev.IdempotencyKey != "" {
		m.idempotency[ev.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) LoadEvents(_ context.Context, id generic.EmployeeID, from, to time.Time) ([]generic.AttendanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.AttendanceEvent
	for _, ev := range m.events[id] {
		if !ev.At.Before(from) && ev.At.Before(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Memory) ListEvents(_ context.Context, f generic.EventFilter) ([]generic.AttendanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.AttendanceEvent
	for id, evs := range m.events {
		if f.EmployeeID != nil && *f.EmployeeID != id {
			continue
		}
		for _, ev := range evs {
			if !f.From.IsZero() && ev.At.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && !ev.At.Before(f.To) {
				continue
			}
			result = append(result, ev)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].At.Equal(result[j].At) {
			return result[i].At.After(result[j].At)
		}
		return result[i].ID > result[j].ID
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// =============================================================================
// CALENDAR
// =============================================================================

func (m *Memory) CreateHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[h.ID]; ok {
		return generic.ErrDuplicateHoliday
	}
	for _, existing := range m.holidays {
		if existing.Date.Equal(h.Date) {
			return generic.ErrDuplicateHoliday
		}
	}
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return generic.ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m *Memory) HolidaysInRange(_ context.Context, p generic.Period) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.Holiday
	for _, h := range m.holidays {
		if p.Start.IsZero() || p.Contains(h.Date) {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) RestDays(_ context.Context, id generic.EmployeeID) ([]time.Weekday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]time.Weekday(nil), m.restDays[id]...), nil
}

func (m *Memory) SetRestDays(_ context.Context, id generic.EmployeeID, days []time.Weekday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[time.Weekday]bool, len(days))
	if _, ok := m.employees[id]; !ok {
		return generic.ErrEmployeeNotFound
	}
	for _, d := range days {
		if seen[d] {
			return generic.ErrDuplicateRestDay
		}
		seen[d] = true
	}
	sorted := append([]time.Weekday(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	m.restDays[id] = sorted
	return nil
}

func (m *Memory) CreateVacation(_ context.Context, v generic.VacationRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRowLocked(m, m.vacations, "vacation", v.ID, v.EmployeeID); err != nil {
		return err
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	m.vacations[v.ID] = v
	return nil
}

func (m *Memory) GetVacation(_ context.Context, id string) (generic.VacationRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vacations[id]
	if !ok {
		return generic.VacationRange{}, generic.ErrNotFound
	}
	return v, nil
}

func (m *Memory) DeleteVacation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vacations[id]; !ok {
		return generic.ErrNotFound
	}
	delete(m.vacations, id)
	return nil
}

func (m *Memory) VacationsInRange(_ context.Context, id generic.EmployeeID, p generic.Period) ([]generic.VacationRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.VacationRange
	for _, v := range m.vacations {
		if v.EmployeeID != id {
			continue
		}
		if p.Start.IsZero() || p.Overlaps(generic.Period{Start: v.Start, End: v.End}) {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) CreatePermission(_ context.Context, pr generic.PermissionRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRowLocked(m, m.permissions, "permission", pr.ID, pr.EmployeeID); err != nil {
		return err
	}
	if pr.CreatedAt.IsZero() {
		pr.CreatedAt = time.Now()
	}
	m.permissions[pr.ID] = pr
	return nil
}

func (m *Memory) GetPermission(_ context.Context, id string) (generic.PermissionRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pr, ok := m.permissions[id]
	if !ok {
		return generic.PermissionRange{}, generic.ErrNotFound
	}
	return pr, nil
}

func (m *Memory) DeletePermission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return generic.ErrNotFound
	}
	delete(m.permissions, id)
	return nil
}

func (m *Memory) PermissionsInRange(_ context.Context, id generic.EmployeeID, p generic.Period) ([]generic.PermissionRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.PermissionRange
	for _, pr := range m.permissions {
		if pr.EmployeeID != id {
			continue
		}
		if p.Start.IsZero() || p.Overlaps(generic.Period{Start: pr.Start, End: pr.End}) {
			result = append(result, pr)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// COMPENSATION
// =============================================================================

func (m *Memory) CreateBonusPlan(_ context.Context, b generic.BonusPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bonusPlans[b.ID]; ok {
		return fmt.Errorf("bonus plan %s: %w", b.ID, generic.ErrDuplicateID)
	}
	m.bonusPlans[b.ID] = b
	return nil
}

func (m *Memory) UpdateBonusPlan(_ context.Context, b generic.BonusPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bonusPlans[b.ID]; !ok {
		return generic.ErrBonusPlanNotFound
	}
	m.bonusPlans[b.ID] = b
	return nil
}

func (m *Memory) DeleteBonusPlan(_ context.Context, id generic.BonusPlanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bonusPlans[id]; !ok {
		return generic.ErrBonusPlanNotFound
	}
	delete(m.bonusPlans, id)
	// Employees pointing at the plan lose it, like ON DELETE SET NULL.
	for eid, e := range m.employees {
		if e.BonusPlanID != nil && *e.BonusPlanID == id {
			e.BonusPlanID = nil
			m.employees[eid] = e
		}
	}
	return nil
}

func (m *Memory) GetBonusPlan(_ context.Context, id generic.BonusPlanID) (generic.BonusPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bonusPlans[id]
	if !ok {
		return generic.BonusPlan{}, generic.ErrBonusPlanNotFound
	}
	return b, nil
}

func (m *Memory) ListBonusPlans(_ context.Context) ([]generic.BonusPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.BonusPlan, 0, len(m.bonusPlans))
	for _, b := range m.bonusPlans {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) CreateCommission(_ context.Context, c generic.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRowLocked(m, m.commissions, "commissions", c.ID, c.EmployeeID); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.commissions[c.ID] = c
	return nil
}

func (m *Memory) DeleteCommission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commissions[id]; !ok {
		return generic.ErrNotFound
	}
	delete(m.commissions, id)
	return nil
}

func (m *Memory) CommissionsInRange(_ context.Context, p generic.Period) ([]generic.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.Commission
	for _, c := range m.commissions {
		if p.Contains(c.ApplyOn) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ApplyOn.Equal(result[j].ApplyOn) {
			return result[i].ApplyOn.Before(result[j].ApplyOn)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) CreateDeduction(_ context.Context, d generic.Deduction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRowLocked(m, m.deductions, "deductions", d.ID, d.EmployeeID); err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	m.deductions[d.ID] = d
	return nil
}

func (m *Memory) DeleteDeduction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deductions[id]; !ok {
		return generic.ErrNotFound
	}
	delete(m.deductions, id)
	return nil
}

func (m *Memory) DeductionsInRange(_ context.Context, p generic.Period) ([]generic.Deduction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.Deduction
	for _, d := range m.deductions {
		if p.Contains(d.ApplyOn) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ApplyOn.Equal(result[j].ApplyOn) {
			return result[i].ApplyOn.Before(result[j].ApplyOn)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// CATALOGUES
// =============================================================================

func (m *Memory) CreateCatalogEntry(_ context.Context, e generic.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalog[e.ID]; ok {
		return fmt.Errorf("catalog entry %s: %w", e.ID, generic.ErrDuplicateID)
	}
	if err := m.checkNameLocked(e); err != nil {
		return err
	}
	m.catalog[e.ID] = e
	return nil
}

func (m *Memory) UpdateCatalogEntry(_ context.Context, e generic.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.catalog[e.ID]; !ok || old.Kind != e.Kind {
		return generic.ErrNotFound
	}
	if err := m.checkNameLocked(e); err != nil {
		return err
	}
	m.catalog[e.ID] = e
	return nil
}

// checkNameLocked mirrors UNIQUE (kind, name).
func (m *Memory) checkNameLocked(e generic.CatalogEntry) error {
	for _, other := range m.catalog {
		if other.ID != e.ID && other.Kind == e.Kind && other.Name == e.Name {
			return fmt.Errorf("%s %q: %w", e.Kind, e.Name, generic.ErrDuplicateName)
		}
	}
	return nil
}

func (m *Memory) GetCatalogEntry(_ context.Context, kind generic.CatalogKind, id string) (generic.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.catalog[id]
	if !ok || e.Kind != kind {
		return generic.CatalogEntry{}, generic.ErrNotFound
	}
	return e, nil
}

func (m *Memory) DeleteCatalogEntry(_ context.Context, kind generic.CatalogKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.catalog[id]; !ok || e.Kind != kind {
		return generic.ErrNotFound
	}
	delete(m.catalog, id)
	return nil
}

func (m *Memory) ListCatalog(_ context.Context, kind generic.CatalogKind) ([]generic.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.CatalogEntry
	for _, e := range m.catalog {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func (m *Memory) SavePayrollRun(_ context.Context, run generic.PayrollRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return generic.ErrDuplicateID
	}
	m.runs[run.ID] = cloneRun(run)
	return nil
}

func (m *Memory) GetPayrollRun(_ context.Context, id generic.RunID) (generic.PayrollRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return generic.PayrollRun{}, generic.ErrRunNotFound
	}
	return cloneRun(run), nil
}

func (m *Memory) ListPayrollRuns(_ context.Context) ([]generic.PayrollRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.PayrollRun, 0, len(m.runs))
	for _, run := range m.runs {
		header := run
		header.Items = nil
		result = append(result, header)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// cloneRun copies line items so callers can never mutate a stored run.
func cloneRun(run generic.PayrollRun) generic.PayrollRun {
	items := make([]generic.LineItem, len(run.Items))
	for i, it := range run.Items {
		it.AbsentDates = append([]generic.Date(nil), it.AbsentDates...)
		items[i] = it
	}
	run.Items = items
	return run
}
