package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
)

func TestEvaluate_DeadlineIsInclusive(t *testing.T) {
	nine := generic.ClockTime{Hour: 9}

	assert.Equal(t, generic.OnTime, attendance.Evaluate(local(6, 8, 59), &nine, cst))
	assert.Equal(t, generic.OnTime, attendance.Evaluate(local(6, 9, 0), &nine, cst))
	assert.Equal(t, generic.Late, attendance.Evaluate(local(6, 9, 0).Add(1), &nine, cst), "one nanosecond after is late")
	assert.Equal(t, generic.Late, attendance.Evaluate(local(6, 9, 1), &nine, cst))
}

func TestEvaluate_NoScheduleIsUntagged(t *testing.T) {
	assert.Equal(t, generic.PunctualityNone, attendance.Evaluate(local(6, 11, 0), nil, cst))
}

func TestQualifiesForBonus_TenMinutesEarly(t *testing.T) {
	// GIVEN: Scheduled 09:00 and a plan requiring 10 minutes of earliness
	// THEN: 08:49 and 08:50 qualify, 08:51 does not

	nine := generic.ClockTime{Hour: 9}
	plan := &generic.BonusPlan{
		ID: "bp", Amount: generic.MustParseDecimal("50.00"),
		Condition: generic.ConditionPunctuality, OffsetMinutes: -10,
	}

	worked := func(minute int) attendance.DayStatus {
		in := local(6, 8, minute)
		return attendance.DayStatus{Date: day(6), Status: attendance.StatusWorked, ClockIn: &in}
	}

	assert.True(t, attendance.QualifiesForBonus(worked(49), &nine, plan, cst))
	assert.True(t, attendance.QualifiesForBonus(worked(50), &nine, plan, cst), "boundary is inclusive")
	assert.False(t, attendance.QualifiesForBonus(worked(51), &nine, plan, cst))
}

func TestQualifiesForBonus_Ineligible(t *testing.T) {
	nine := generic.ClockTime{Hour: 9}
	plan := &generic.BonusPlan{Condition: generic.ConditionPunctuality, OffsetMinutes: -10}
	in := local(6, 8, 0)
	worked := attendance.DayStatus{Date: day(6), Status: attendance.StatusWorked, ClockIn: &in}

	t.Run("no schedule", func(t *testing.T) {
		assert.False(t, attendance.QualifiesForBonus(worked, nil, plan, cst))
	})
	t.Run("no plan", func(t *testing.T) {
		assert.False(t, attendance.QualifiesForBonus(worked, &nine, nil, cst))
	})
	t.Run("NONE condition", func(t *testing.T) {
		none := &generic.BonusPlan{Condition: generic.ConditionNone}
		assert.False(t, attendance.QualifiesForBonus(worked, &nine, none, cst))
	})
	t.Run("holiday with stray clock-in", func(t *testing.T) {
		holiday := attendance.DayStatus{Date: day(6), Status: attendance.StatusHoliday, ClockIn: &in}
		assert.False(t, attendance.QualifiesForBonus(holiday, &nine, plan, cst))
	})
}

func TestDeadline_UsesEventDay(t *testing.T) {
	nine := generic.ClockTime{Hour: 9}
	got := attendance.Deadline(local(9, 7, 30), nine, -15, cst)
	assert.True(t, got.Equal(local(9, 8, 45)))
}
