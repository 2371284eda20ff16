/*
Package generic provides the core data model of the time-clock engine.

PURPOSE:
  This package contains the entities that every other package talks about:
  employees and their schedules, raw attendance events, calendar exceptions
  (holidays, rest days, vacations, permissions), compensation rows (bonus
  plans, commissions, deductions) and frozen payroll runs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal, never float64
  - AttendanceEvent: an immutable clock-in / clock-out record
  - Calendar exceptions: inputs to day classification
  - CatalogEntry: titles, branches and permission reason codes
  - PayrollRun / LineItem: immutable snapshots written once on "save"

DESIGN PRINCIPLES:
  1. Immutability: events and payroll runs are append-only
  2. Precision: decimal.Decimal for every monetary value
  3. Type Safety: distinct ID types for employees, plans and runs
  4. Explicit references: an employee points at its bonus plan by ID

SEE ALSO:
  - time.go: Date, ClockTime and Period
  - errors.go: sentinel and structured errors
  - store.go: persistence contracts
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EventID string
type BonusPlanID string
type RunID string

// =============================================================================
// MONEY - Fixed-point currency with 2 decimal places
// =============================================================================

// MoneyPlaces is the number of decimal places used for currency values.
const MoneyPlaces = 2

// MustParseDecimal parses a literal decimal and panics on bad input.
// Stored or user-supplied amounts go through ParseMoney or a checked parse.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ParseMoney parses a currency amount and rejects more than two decimal places.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "not a decimal number"}
	}
	if !d.Equal(d.Round(MoneyPlaces)) {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "more than 2 decimal places"}
	}
	return d, nil
}

// FormatMoney renders an amount with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string { return d.StringFixed(MoneyPlaces) }

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID          EmployeeID
	Name        string
	Branch      string
	Title       string
	DailySalary decimal.Decimal
	BonusPlanID *BonusPlanID
	HireDate    Date // zero when unknown

	// Scheduled wall-clock times. Nil when not configured.
	ClockIn  *ClockTime
	ClockOut *ClockTime

	CreatedAt time.Time
}

// ActiveDuring reports whether the employee belongs to a payroll run over p.
func (e Employee) ActiveDuring(p Period) bool {
	return e.HireDate.IsZero() || e.HireDate.BeforeOrEqual(p.End)
}

// =============================================================================
// ATTENDANCE EVENT - Immutable kiosk interaction
// =============================================================================

type EventKind string

const (
	ClockIn  EventKind = "CLOCK_IN"
	ClockOut EventKind = "CLOCK_OUT"
)

func (k EventKind) Valid() bool { return k == ClockIn || k == ClockOut }

type Punctuality string

const (
	PunctualityNone Punctuality = ""
	OnTime          Punctuality = "ON_TIME"
	Late            Punctuality = "LATE"
)

type AttendanceEvent struct {
	ID          EventID
	EmployeeID  EmployeeID
	Kind        EventKind
	At          time.Time
	Punctuality Punctuality // set on CLOCK_IN only
	Source      string      // "kiosk", "admin", "scenario"

	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// CALENDAR EXCEPTIONS
// =============================================================================

// Holiday is an organisation-wide non-working date.
type Holiday struct {
	ID   string
	Date Date
	Name string
}

// RestDay is a weekday on which an employee does not work.
type RestDay struct {
	EmployeeID EmployeeID
	Weekday    time.Weekday
}

type VacationRange struct {
	ID         string
	EmployeeID EmployeeID
	Start      Date
	End        Date
	CreatedAt  time.Time
}

func (v VacationRange) Covers(d Date) bool { return Period{Start: v.Start, End: v.End}.Contains(d) }

type PermissionRange struct {
	ID         string
	EmployeeID EmployeeID
	Start      Date
	End        Date
	Reason     string
	CreatedAt  time.Time
}

func (p PermissionRange) Covers(d Date) bool { return Period{Start: p.Start, End: p.End}.Contains(d) }

// =============================================================================
// COMPENSATION
// =============================================================================

type BonusCondition string

const (
	ConditionNone        BonusCondition = "NONE"
	ConditionPunctuality BonusCondition = "PUNCTUALITY"
)

type BonusPlan struct {
	ID        BonusPlanID
	Name      string
	Amount    decimal.Decimal
	Condition BonusCondition

	// OffsetMinutes shifts the scheduled clock-in deadline. Always <= 0:
	// -10 means the employee must arrive ten minutes early.
	OffsetMinutes int
}

type Commission struct {
	ID         string
	EmployeeID EmployeeID
	Amount     decimal.Decimal
	Label      string // e.g. "OCTUBRE 2025"
	ApplyOn    Date
	CreatedAt  time.Time
}

type Deduction struct {
	ID         string
	EmployeeID EmployeeID
	Amount     decimal.Decimal // positive; subtracted from gross
	Label      string
	ApplyOn    Date
	CreatedAt  time.Time
}

// =============================================================================
// CATALOGUES - Admin-maintained name lists
// =============================================================================

type CatalogKind string

const (
	CatalogTitles            CatalogKind = "titles"
	CatalogBranches          CatalogKind = "branches"
	CatalogPermissionReasons CatalogKind = "permission-reasons"
)

func (k CatalogKind) Valid() bool {
	switch k {
	case CatalogTitles, CatalogBranches, CatalogPermissionReasons:
		return true
	}
	return false
}

// CatalogEntry is a job title, a branch or a permission reason code.
// Name is unique within its kind.
type CatalogEntry struct {
	ID   string
	Kind CatalogKind
	Name string

	// DailySalary is the suggested salary of a title. Zero for other kinds.
	DailySalary decimal.Decimal
}

// =============================================================================
// PAYROLL RUN - Frozen snapshot, written once
// =============================================================================

type PayrollRun struct {
	ID        RunID
	Name      string
	Period    Period
	CreatedAt time.Time
	Items     []LineItem
}

// LineItem is one employee's earnings breakdown. Every intermediate figure
// is kept so a receipt can be reprinted without recomputation.
type LineItem struct {
	EmployeeID      EmployeeID
	Name            string
	Title           string
	HireDate        Date
	DailySalary     decimal.Decimal
	DaysWorked      int
	BasePay         decimal.Decimal
	BonusTotal      decimal.Decimal
	CommissionTotal decimal.Decimal
	DeductionTotal  decimal.Decimal
	GrossEarnings   decimal.Decimal
	NetPay          decimal.Decimal
	AbsentDates     []Date
}

// Totals sums gross, deductions and net over the line items of a run.
func (r PayrollRun) Totals() (gross, deductions, net decimal.Decimal) {
	for _, it := range r.Items {
		gross = gross.Add(it.GrossEarnings)
		deductions = deductions.Add(it.DeductionTotal)
		net = net.Add(it.NetPay)
	}
	return gross, deductions, net
}

// Item returns the line item for an employee.
func (r PayrollRun) Item(id EmployeeID) (LineItem, bool) {
	for _, it := range r.Items {
		if it.EmployeeID == id {
			return it, true
		}
	}
	return LineItem{}, false
}
