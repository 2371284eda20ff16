package attendance

import (
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// PUNCTUALITY EVALUATOR
// =============================================================================

// Deadline is the scheduled clock-in applied to the local calendar day of
// at, shifted by offsetMinutes (zero or negative).
func Deadline(at time.Time, scheduled generic.ClockTime, offsetMinutes int, loc *time.Location) time.Time {
	day := generic.DateOf(at, loc)
	return day.At(scheduled, loc).Add(time.Duration(offsetMinutes) * time.Minute)
}

// Evaluate tags a clock-in. LATE only when strictly after the deadline.
// An employee without a scheduled clock-in is left untagged.
func Evaluate(at time.Time, scheduled *generic.ClockTime, loc *time.Location) generic.Punctuality {
	if scheduled == nil {
		return generic.PunctualityNone
	}
	if at.After(Deadline(at, *scheduled, 0, loc)) {
		return generic.Late
	}
	return generic.OnTime
}

// QualifiesForBonus reports whether a classified day earns the plan's
// punctuality bonus: the day is WORKED and the first clock-in is at or
// before the shifted deadline. Missing schedule or plan means no bonus.
func QualifiesForBonus(day DayStatus, scheduled *generic.ClockTime, plan *generic.BonusPlan, loc *time.Location) bool {
	if plan == nil || plan.Condition != generic.ConditionPunctuality {
		return false
	}
	if scheduled == nil {
		return false
	}
	if day.Status != StatusWorked || day.ClockIn == nil {
		return false
	}
	deadline := Deadline(*day.ClockIn, *scheduled, plan.OffsetMinutes, loc)
	return !day.ClockIn.After(deadline)
}
