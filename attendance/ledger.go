/*
ledger.go - Attendance event ingestion

PURPOSE:
  Wraps the append-only EventStore with the rules that apply at the
  moment a punch is recorded:
    1. The employee must exist
    2. The kind is explicit or inferred from today's punches
    3. CLOCK_IN events are tagged ON_TIME / LATE
    4. Classification caches for the employee are invalidated

KIND INFERENCE:
  A kiosk sends just a face. If the employee has no clock-in yet on the
  current local day the punch is a CLOCK_IN, otherwise a CLOCK_OUT.

IDEMPOTENCY:
  A repeated idempotency key is rejected with ErrDuplicateIdempotencyKey,
  so a double tap or a network retry records at most one event.

SEE ALSO:
  - punctuality.go: Evaluate
  - api/attendance.go: kiosk check-in and admin punch endpoints
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// EVENT LEDGER
// =============================================================================

type EventLedger struct {
	store generic.Store
	loc   *time.Location
	cache *ReportCache
	now   func() time.Time
}

func NewEventLedger(store generic.Store, loc *time.Location, cache *ReportCache) *EventLedger {
	if loc == nil {
		loc = time.UTC
	}
	return &EventLedger{store: store, loc: loc, cache: cache, now: time.Now}
}

// WithClock replaces the wall clock used for inferred timestamps.
func (l *EventLedger) WithClock(now func() time.Time) *EventLedger {
	l.now = now
	return l
}

// Punch is a request to record one event.
type Punch struct {
	EmployeeID     generic.EmployeeID
	Kind           generic.EventKind // empty: infer
	At             time.Time         // zero: now
	Source         string
	IdempotencyKey string
}

// Record validates, tags and appends a punch.
func (l *EventLedger) Record(ctx context.Context, p Punch) (generic.AttendanceEvent, generic.Employee, error) {
	if p.Kind != "" && !p.Kind.Valid() {
		return generic.AttendanceEvent{}, generic.Employee{}, fmt.Errorf("%w: unknown kind %q", generic.ErrInvalidEvent, p.Kind)
	}

	emp, err := l.store.GetEmployee(ctx, p.EmployeeID)
	if err != nil {
		return generic.AttendanceEvent{}, generic.Employee{}, err
	}

	now := l.now()
	at := p.At
	if at.IsZero() {
		at = now
	}

	kind := p.Kind
	if kind == "" {
		kind, err = l.inferKind(ctx, emp.ID, at)
		if err != nil {
			return generic.AttendanceEvent{}, emp, err
		}
	}

	ev := generic.AttendanceEvent{
		ID:             generic.EventID(uuid.NewString()),
		EmployeeID:     emp.ID,
		Kind:           kind,
		At:             at,
		Source:         p.Source,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      now,
	}
	if kind == generic.ClockIn {
		ev.Punctuality = Evaluate(at, emp.ClockIn, l.loc)
	}

	if err := l.store.AppendEvent(ctx, ev); err != nil {
		return generic.AttendanceEvent{}, emp, err
	}
	l.cache.Invalidate(emp.ID)
	return ev, emp, nil
}

// inferKind returns CLOCK_OUT when the local day of at already has a clock-in.
func (l *EventLedger) inferKind(ctx context.Context, emp generic.EmployeeID, at time.Time) (generic.EventKind, error) {
	day := generic.DateOf(at, l.loc)
	events, err := l.store.LoadEvents(ctx, emp, day.Start(l.loc), day.AddDays(1).Start(l.loc))
	if err != nil {
		return "", fmt.Errorf("failed to load today's events: %w", err)
	}
	for _, ev := range events {
		if ev.Kind == generic.ClockIn {
			return generic.ClockOut, nil
		}
	}
	return generic.ClockIn, nil
}
