package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// REPORTER - Store snapshot -> classified days
// =============================================================================

// Reporter resolves exceptions, pairs events and classifies every day of a
// period for one employee. It holds no mutable computation state; the cache
// is the only thing shared between requests.
type Reporter struct {
	store   generic.Store
	loc     *time.Location
	cache   *ReportCache
	maxDays int
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithCache enables the read-through cache.
func WithCache(c *ReportCache) ReporterOption {
	return func(r *Reporter) { r.cache = c }
}

// WithMaxDays rejects periods longer than n days.
func WithMaxDays(n int) ReporterOption {
	return func(r *Reporter) { r.maxDays = n }
}

func NewReporter(store generic.Store, loc *time.Location, opts ...ReporterOption) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	r := &Reporter{store: store, loc: loc}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Location() *time.Location { return r.loc }
func (r *Reporter) Cache() *ReportCache      { return r.cache }

// ValidatePeriod applies the reporter's range limits.
func (r *Reporter) ValidatePeriod(p generic.Period) error {
	return p.ValidateMax(r.maxDays)
}

// Days classifies every day of p for emp, in ascending date order.
func (r *Reporter) Days(ctx context.Context, emp generic.EmployeeID, p generic.Period) ([]DayStatus, error) {
	if err := r.ValidatePeriod(p); err != nil {
		return nil, err
	}

	key := r.cache.Key(emp, p)
	if days, ok := r.cache.Get(key); ok {
		return days, nil
	}

	ex, err := ResolveExceptions(ctx, r.store, emp, p)
	if err != nil {
		return nil, err
	}
	from, to := p.Bounds(r.loc)
	events, err := r.store.LoadEvents(ctx, emp, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	days := Classify(p, ex, Pair(events, r.loc))
	r.cache.Put(key, days)
	return days, nil
}

// Report is a single employee's attendance over a period.
type Report struct {
	Employee generic.Employee
	Period   generic.Period
	Days     []DayStatus
	Counts   map[Status]int
}

// Report validates the request, then classifies. Unknown employees are
// rejected before any computation.
func (r *Reporter) Report(ctx context.Context, emp generic.EmployeeID, p generic.Period) (Report, error) {
	if err := r.ValidatePeriod(p); err != nil {
		return Report{}, err
	}
	e, err := r.store.GetEmployee(ctx, emp)
	if err != nil {
		return Report{}, err
	}
	days, err := r.Days(ctx, emp, p)
	if err != nil {
		return Report{}, err
	}
	return Report{Employee: e, Period: p, Days: days, Counts: Count(days)}, nil
}
