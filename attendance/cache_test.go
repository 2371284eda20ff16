package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/generic/store"
)

func newCachedReporter(t *testing.T) (*attendance.Reporter, *attendance.EventLedger, *store.Memory, *attendance.ReportCache) {
	cache, err := attendance.NewReportCache(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	_, mem := newTestReporter(t)
	reporter := attendance.NewReporter(mem, cst, attendance.WithCache(cache))
	ledger := attendance.NewEventLedger(mem, cst, cache)
	return reporter, ledger, mem, cache
}

func TestReportCache_InvalidateEmployeeBumpsKey(t *testing.T) {
	cache, err := attendance.NewReportCache(100, 0)
	require.NoError(t, err)
	defer cache.Close()

	before := cache.Key("emp-1", week)
	cache.Put(before, []attendance.DayStatus{{Date: day(6), Status: attendance.StatusAbsent}})

	got, ok := cache.Get(before)
	require.True(t, ok)
	assert.Len(t, got, 1)

	other := cache.Key("emp-2", week)
	cache.Invalidate("emp-1")

	assert.NotEqual(t, before, cache.Key("emp-1", week))
	assert.Equal(t, other, cache.Key("emp-2", week), "other employees keep their keys")

	cache.InvalidateAll()
	assert.NotEqual(t, other, cache.Key("emp-2", week))
}

func TestReportCache_NilIsDisabled(t *testing.T) {
	var cache *attendance.ReportCache
	cache.Put(cache.Key("emp-1", week), nil)
	_, ok := cache.Get(cache.Key("emp-1", week))
	assert.False(t, ok)
	cache.Invalidate("emp-1")
	cache.InvalidateAll()
}

func TestReporter_CacheInvalidatedByLedgerWrite(t *testing.T) {
	// GIVEN: A cached week with Monday ABSENT
	// WHEN: A clock-in is recorded through the ledger
	// THEN: The next report sees Monday WORKED

	reporter, ledger, _, _ := newCachedReporter(t)
	ctx := context.Background()

	days, err := reporter.Days(ctx, "emp-1", week)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, days[0].Status)

	_, _, err = ledger.Record(ctx, attendance.Punch{EmployeeID: "emp-1", Kind: generic.ClockIn, At: local(6, 9, 0)})
	require.NoError(t, err)

	days, err = reporter.Days(ctx, "emp-1", week)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWorked, days[0].Status)
}

func TestReporter_CacheHidesDirectStoreWritesUntilInvalidated(t *testing.T) {
	reporter, _, mem, cache := newCachedReporter(t)
	ctx := context.Background()

	_, err := reporter.Days(ctx, "emp-1", week)
	require.NoError(t, err)

	require.NoError(t, mem.CreateHoliday(ctx, generic.Holiday{ID: "h", Date: day(6), Name: "Fiesta"}))
	cache.InvalidateAll()

	days, err := reporter.Days(ctx, "emp-1", week)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHoliday, days[0].Status)
}
