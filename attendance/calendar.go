/*
Package attendance turns raw clock events and calendar exceptions into
one status per employee per day.

PURPOSE:
  This package holds the reconciliation core:
    - Calendar exception resolution (holiday, rest, vacation, permission)
    - Event pairing per local calendar day
    - Day status classification with a fixed precedence
    - Punctuality evaluation at clock-in and for bonus eligibility

  Every function in calendar.go, pair.go, classify.go and punctuality.go
  is pure given its inputs. Store access happens only in ResolveExceptions,
  the Reporter and the EventLedger.

PRECEDENCE (frozen business rule):
  HOLIDAY > REST > VACATION > PERMISSION > WORKED > ABSENT

  An employee on vacation who also clocked in is VACATION, not WORKED.

DAY ATTRIBUTION:
  An event belongs to the calendar day of its timestamp on the
  organisation's wall clock. Shifts crossing midnight are not stitched:
  the clock-in and the clock-out each count for their own day.

SEE ALSO:
  - reporter.go: per-employee report with read-through cache
  - ledger.go: event ingestion with punctuality tagging
  - payroll/engine.go: consumes DayStatus for every active employee
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// CALENDAR EXCEPTION RESOLVER
// =============================================================================

// Exceptions holds the special-day data that applies to one employee over
// one period, independent of attendance events.
type Exceptions struct {
	Holidays    map[generic.Date]generic.Holiday
	RestDays    map[time.Weekday]bool
	Vacations   []generic.VacationRange
	Permissions []generic.PermissionRange // earliest-created first
}

// ResolveExceptions reads the exception data for emp intersecting p.
// Missing data yields empty sets.
func ResolveExceptions(ctx context.Context, store generic.CalendarStore, emp generic.EmployeeID, p generic.Period) (Exceptions, error) {
	holidays, err := store.HolidaysInRange(ctx, p)
	if err != nil {
		return Exceptions{}, fmt.Errorf("failed to load holidays: %w", err)
	}
	restDays, err := store.RestDays(ctx, emp)
	if err != nil {
		return Exceptions{}, fmt.Errorf("failed to load rest days: %w", err)
	}
	vacations, err := store.VacationsInRange(ctx, emp, p)
	if err != nil {
		return Exceptions{}, fmt.Errorf("failed to load vacations: %w", err)
	}
	permissions, err := store.PermissionsInRange(ctx, emp, p)
	if err != nil {
		return Exceptions{}, fmt.Errorf("failed to load permissions: %w", err)
	}
	return NewExceptions(holidays, restDays, vacations, permissions), nil
}

// NewExceptions builds the lookup structures. Permissions must already be
// ordered earliest-created first; the classifier takes the first match.
func NewExceptions(holidays []generic.Holiday, restDays []time.Weekday,
	vacations []generic.VacationRange, permissions []generic.PermissionRange) Exceptions {
	ex := Exceptions{
		Holidays:    make(map[generic.Date]generic.Holiday, len(holidays)),
		RestDays:    make(map[time.Weekday]bool, len(restDays)),
		Vacations:   vacations,
		Permissions: permissions,
	}
	for _, h := range holidays {
		ex.Holidays[h.Date] = h
	}
	for _, wd := range restDays {
		ex.RestDays[wd] = true
	}
	return ex
}

// Holiday returns the holiday on d, if any.
func (ex Exceptions) Holiday(d generic.Date) (generic.Holiday, bool) {
	h, ok := ex.Holidays[d]
	return h, ok
}

func (ex Exceptions) IsRestDay(d generic.Date) bool { return ex.RestDays[d.Weekday()] }

func (ex Exceptions) OnVacation(d generic.Date) bool {
	for _, v := range ex.Vacations {
		if v.Covers(d) {
			return true
		}
	}
	return false
}

// Permission returns the first permission covering d.
func (ex Exceptions) Permission(d generic.Date) (generic.PermissionRange, bool) {
	for _, p := range ex.Permissions {
		if p.Covers(d) {
			return p, true
		}
	}
	return generic.PermissionRange{}, false
}
