package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range used by reports and payroll runs
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
//
// Examples:
//   - Weekly payroll: Mon 2025-10-06 - Sun 2025-10-12
//   - Attendance report: any range the admin selects
type Period struct {
	Start Date
	End   Date
}

// NewPeriod parses and validates an inclusive range.
func NewPeriod(from, to string) (Period, error) {
	if from == "" || to == "" {
		return Period{}, &ValidationError{Field: "range", Message: "from and to are required"}
	}
	start, err := ParseDate(from)
	if err != nil {
		return Period{}, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return Period{}, err
	}
	p := Period{Start: start, End: end}
	return p, p.Validate()
}

// Validate rejects ranges whose end precedes their start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// ValidateMax additionally rejects ranges longer than maxDays.
func (p Period) ValidateMax(maxDays int) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if maxDays > 0 && p.Len() > maxDays {
		return fmt.Errorf("%w: %d days (max %d)", ErrPeriodTooLong, p.Len(), maxDays)
	}
	return nil
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !o.End.Before(p.Start) && !o.Start.After(p.End)
}

// Len returns the number of days in the period.
func (p Period) Len() int { return DaysBetween(p.Start, p.End) + 1 }

// Days returns all days in the period in ascending order.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Bounds returns the half-open instant range [start of Start, start of End+1) in loc.
func (p Period) Bounds(loc *time.Location) (from, to time.Time) {
	return p.Start.Start(loc), p.End.AddDays(1).Start(loc)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
