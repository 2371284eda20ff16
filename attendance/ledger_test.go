package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
)

func TestEventLedger_InfersKindAndTagsPunctuality(t *testing.T) {
	// GIVEN: No punches today
	// WHEN: Two kiosk punches without a kind
	// THEN: First is a LATE CLOCK_IN, second a CLOCK_OUT with no tag

	_, mem := newTestReporter(t)
	ctx := context.Background()

	now := local(6, 9, 5)
	ledger := attendance.NewEventLedger(mem, cst, nil).WithClock(func() time.Time { return now })

	first, emp, err := ledger.Record(ctx, attendance.Punch{EmployeeID: "emp-1", Source: "kiosk"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", emp.Name)
	assert.Equal(t, generic.ClockIn, first.Kind)
	assert.Equal(t, generic.Late, first.Punctuality)
	assert.NotEmpty(t, first.ID)

	now = local(6, 18, 0)
	second, _, err := ledger.Record(ctx, attendance.Punch{EmployeeID: "emp-1", Source: "kiosk"})
	require.NoError(t, err)
	assert.Equal(t, generic.ClockOut, second.Kind)
	assert.Equal(t, generic.PunctualityNone, second.Punctuality)

	now = local(7, 8, 40)
	third, _, err := ledger.Record(ctx, attendance.Punch{EmployeeID: "emp-1", Source: "kiosk"})
	require.NoError(t, err)
	assert.Equal(t, generic.ClockIn, third.Kind, "a new day starts with a clock-in")
	assert.Equal(t, generic.OnTime, third.Punctuality)
}

func TestEventLedger_DuplicateIdempotencyKey(t *testing.T) {
	_, mem := newTestReporter(t)
	ctx := context.Background()
	ledger := attendance.NewEventLedger(mem, cst, nil)

	punch := attendance.Punch{EmployeeID: "emp-1", Kind: generic.ClockIn, At: local(6, 9, 0), IdempotencyKey: "tap-1"}
	_, _, err := ledger.Record(ctx, punch)
	require.NoError(t, err)

	_, _, err = ledger.Record(ctx, punch)
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	events, err := mem.ListEvents(ctx, generic.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventLedger_Rejections(t *testing.T) {
	_, mem := newTestReporter(t)
	ctx := context.Background()
	ledger := attendance.NewEventLedger(mem, cst, nil)

	_, _, err := ledger.Record(ctx, attendance.Punch{EmployeeID: "emp-1", Kind: "BREAK"})
	assert.ErrorIs(t, err, generic.ErrInvalidEvent)
	assert.True(t, generic.IsClientError(err))

	_, _, err = ledger.Record(ctx, attendance.Punch{EmployeeID: "ghost"})
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}
