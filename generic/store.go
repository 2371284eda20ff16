/*
store.go - Persistence contracts for the time-clock engine

PURPOSE:
  Defines the interface between the reconciliation/payroll logic and the
  database. The engine reads snapshots through these interfaces and writes
  exactly two kinds of immutable rows: attendance events and payroll runs.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  EmployeeStore:     Employee records and schedules
  EventStore:        Append-only attendance events
  CalendarStore:     Holidays, rest days, vacations, permissions
  CompensationStore: Bonus plans, commissions, deductions
  CatalogStore:      Titles, branches, permission reason codes
  PayrollStore:      Immutable payroll runs with their line items
  Store:             All of the above

APPEND-ONLY CONTRACT:
  - AppendEvent(): the only write for attendance. No update, no delete.
  - SavePayrollRun(): writes the run and every line item atomically.
    A saved run is never rewritten; saving the same period again creates
    a new run.

IDEMPOTENCY:
  Events may carry an idempotency key. If the key already exists the
  append is rejected with ErrDuplicateIdempotencyKey, so a kiosk retry
  or a double tap records at most one event.

ORDERING:
  LoadEvents returns events ordered by timestamp ascending (the pairer
  depends on it). ListEvents returns newest first for the admin log.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - attendance/calendar.go: reads CalendarStore
  - payroll/engine.go: reads CompensationStore, writes PayrollStore
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeStore interface {
	CreateEmployee(ctx context.Context, e Employee) error
	UpdateEmployee(ctx context.Context, e Employee) error

	// GetEmployee returns ErrEmployeeNotFound when the id is unknown.
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)

	// ListEmployees returns employees ordered by name. An empty branch lists all.
	ListEmployees(ctx context.Context, branch string) ([]Employee, error)

	// DeleteEmployee refuses with ErrEmployeeReferenced while events exist.
	DeleteEmployee(ctx context.Context, id EmployeeID) error
}

// =============================================================================
// ATTENDANCE EVENTS - Append-only
// =============================================================================

// EventFilter narrows the admin event log. Zero fields are ignored.
type EventFilter struct {
	EmployeeID *EmployeeID
	From       time.Time // inclusive
	To         time.Time // exclusive
	Limit      int
}

type EventStore interface {
	// AppendEvent persists an event. Returns ErrDuplicateIdempotencyKey
	// if the key already exists.
	AppendEvent(ctx context.Context, ev AttendanceEvent) error

	// LoadEvents returns the employee's events with from <= At < to,
	// ordered by At ascending.
	LoadEvents(ctx context.Context, id EmployeeID, from, to time.Time) ([]AttendanceEvent, error)

	// ListEvents returns events matching the filter, newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]AttendanceEvent, error)
}

// =============================================================================
// CALENDAR EXCEPTIONS
// =============================================================================

type CalendarStore interface {
	CreateHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	// HolidaysInRange returns holidays inside p. A zero p lists all.
	HolidaysInRange(ctx context.Context, p Period) ([]Holiday, error)

	RestDays(ctx context.Context, id EmployeeID) ([]time.Weekday, error)
	// SetRestDays replaces the employee's rest-day set.
	SetRestDays(ctx context.Context, id EmployeeID, days []time.Weekday) error

	CreateVacation(ctx context.Context, v VacationRange) error
	// GetVacation returns ErrNotFound when the id is unknown.
	GetVacation(ctx context.Context, id string) (VacationRange, error)
	DeleteVacation(ctx context.Context, id string) error
	// VacationsInRange returns the employee's ranges intersecting p. A zero p lists all.
	VacationsInRange(ctx context.Context, id EmployeeID, p Period) ([]VacationRange, error)

	CreatePermission(ctx context.Context, pr PermissionRange) error
	GetPermission(ctx context.Context, id string) (PermissionRange, error)
	DeletePermission(ctx context.Context, id string) error
	// PermissionsInRange returns ranges intersecting p ordered by creation time, then id.
	PermissionsInRange(ctx context.Context, id EmployeeID, p Period) ([]PermissionRange, error)
}

// =============================================================================
// COMPENSATION
// =============================================================================

type CompensationStore interface {
	CreateBonusPlan(ctx context.Context, b BonusPlan) error
	UpdateBonusPlan(ctx context.Context, b BonusPlan) error
	DeleteBonusPlan(ctx context.Context, id BonusPlanID) error
	GetBonusPlan(ctx context.Context, id BonusPlanID) (BonusPlan, error)
	ListBonusPlans(ctx context.Context) ([]BonusPlan, error)

	CreateCommission(ctx context.Context, c Commission) error
	DeleteCommission(ctx context.Context, id string) error
	// CommissionsInRange returns rows whose ApplyOn falls in p, for every employee.
	CommissionsInRange(ctx context.Context, p Period) ([]Commission, error)

	CreateDeduction(ctx context.Context, d Deduction) error
	DeleteDeduction(ctx context.Context, id string) error
	DeductionsInRange(ctx context.Context, p Period) ([]Deduction, error)
}

// =============================================================================
// CATALOGUES
// =============================================================================

type CatalogStore interface {
	// CreateCatalogEntry returns ErrDuplicateID or ErrDuplicateName on collision.
	CreateCatalogEntry(ctx context.Context, e CatalogEntry) error
	UpdateCatalogEntry(ctx context.Context, e CatalogEntry) error
	// GetCatalogEntry and DeleteCatalogEntry return ErrNotFound when no entry
	// of that kind has the id.
	GetCatalogEntry(ctx context.Context, kind CatalogKind, id string) (CatalogEntry, error)
	DeleteCatalogEntry(ctx context.Context, kind CatalogKind, id string) error
	// ListCatalog returns the entries of one kind ordered by name.
	ListCatalog(ctx context.Context, kind CatalogKind) ([]CatalogEntry, error)
}

// =============================================================================
// PAYROLL RUNS - Immutable
// =============================================================================

type PayrollStore interface {
	// SavePayrollRun writes the run header and all line items in one transaction.
	SavePayrollRun(ctx context.Context, run PayrollRun) error

	// GetPayrollRun returns the full run or ErrRunNotFound.
	GetPayrollRun(ctx context.Context, id RunID) (PayrollRun, error)

	// ListPayrollRuns returns run headers (no items), newest first.
	ListPayrollRuns(ctx context.Context) ([]PayrollRun, error)
}

// =============================================================================
// STORE - Everything the engine and the API need
// =============================================================================

type Store interface {
	EmployeeStore
	EventStore
	CalendarStore
	CompensationStore
	CatalogStore
	PayrollStore

	// Reset clears all data (demo scenarios).
	Reset(ctx context.Context) error
}
