package attendance

import (
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// EVENT PAIRER
// =============================================================================

// DayAttendance is the paired view of one local calendar day.
type DayAttendance struct {
	FirstClockIn *time.Time
	LastClockOut *time.Time
}

// Worked reports whether the day has at least one clock-in.
func (a DayAttendance) Worked() bool { return a.FirstClockIn != nil }

// Pair groups events by the local day of their timestamp. The first
// clock-in of a day is kept and later ones are ignored. The most recent
// clock-out is kept. Input order only breaks ties on equal timestamps.
func Pair(events []generic.AttendanceEvent, loc *time.Location) map[generic.Date]DayAttendance {
	days := make(map[generic.Date]DayAttendance)
	for _, ev := range events {
		d := generic.DateOf(ev.At, loc)
		day := days[d]
		at := ev.At.In(loc)
		switch ev.Kind {
		case generic.ClockIn:
			if day.FirstClockIn == nil || at.Before(*day.FirstClockIn) {
				day.FirstClockIn = &at
			}
		case generic.ClockOut:
			if day.LastClockOut == nil || !at.Before(*day.LastClockOut) {
				day.LastClockOut = &at
			}
		}
		days[d] = day
	}
	return days
}
