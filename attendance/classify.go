package attendance

import (
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// DAY STATUS CLASSIFIER
// =============================================================================

type Status string

const (
	StatusHoliday    Status = "HOLIDAY"
	StatusRest       Status = "REST"
	StatusVacation   Status = "VACATION"
	StatusPermission Status = "PERMISSION"
	StatusWorked     Status = "WORKED"
	StatusAbsent     Status = "ABSENT"
)

// Statuses lists every status in precedence order.
var Statuses = []Status{StatusHoliday, StatusRest, StatusVacation, StatusPermission, StatusWorked, StatusAbsent}

// DayStatus is the single classification of one day.
type DayStatus struct {
	Date   generic.Date
	Status Status

	// Set only for WORKED days. ClockOut may be nil.
	ClockIn  *time.Time
	ClockOut *time.Time

	// Holiday name or permission reason.
	Label string
}

// ClassifyDay applies the fixed precedence and stops at the first match.
func ClassifyDay(d generic.Date, ex Exceptions, att DayAttendance) DayStatus {
	ds := DayStatus{Date: d}
	if h, ok := ex.Holiday(d); ok {
		ds.Status, ds.Label = StatusHoliday, h.Name
		return ds
	}
	if ex.IsRestDay(d) {
		ds.Status = StatusRest
		return ds
	}
	if ex.OnVacation(d) {
		ds.Status = StatusVacation
		return ds
	}
	if p, ok := ex.Permission(d); ok {
		ds.Status, ds.Label = StatusPermission, p.Reason
		return ds
	}
	if att.Worked() {
		ds.Status = StatusWorked
		ds.ClockIn, ds.ClockOut = att.FirstClockIn, att.LastClockOut
		return ds
	}
	ds.Status = StatusAbsent
	return ds
}

// Classify returns one DayStatus per day of p in ascending date order.
func Classify(p generic.Period, ex Exceptions, paired map[generic.Date]DayAttendance) []DayStatus {
	days := p.Days()
	result := make([]DayStatus, len(days))
	for i, d := range days {
		result[i] = ClassifyDay(d, ex, paired[d])
	}
	return result
}

// Count tallies statuses. Every status is present, zero when unused.
func Count(days []DayStatus) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, d := range days {
		counts[d.Status]++
	}
	return counts
}

// WorkedDays counts WORKED entries.
func WorkedDays(days []DayStatus) int {
	n := 0
	for _, d := range days {
		if d.Status == StatusWorked {
			n++
		}
	}
	return n
}
