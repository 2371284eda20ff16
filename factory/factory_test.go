package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/generic/store"
	"github.com/warp/timeclock/payroll"
)

var cst = time.FixedZone("CST", -6*60*60)

func evaluate(at time.Time, scheduled *generic.ClockTime) generic.Punctuality {
	return attendance.Evaluate(at, scheduled, cst)
}

// =============================================================================
// BONUS PLANS
// =============================================================================

func TestBonusFactory_Preset(t *testing.T) {
	f := factory.NewBonusFactory()

	plan, err := f.ParseBonusPlan(factory.PunctualityPlanJSON("bp-1", "Puntualidad", "50.00", 10))
	require.NoError(t, err)

	assert.Equal(t, generic.BonusPlanID("bp-1"), plan.ID)
	assert.Equal(t, generic.ConditionPunctuality, plan.Condition)
	assert.True(t, plan.Amount.Equal(generic.MustParseDecimal("50")))
	assert.Equal(t, -10, plan.OffsetMinutes)
}

func TestBonusFactory_Defaults(t *testing.T) {
	f := factory.NewBonusFactory()

	plan, err := f.ParseBonusPlan(`{"name": "Fijo", "amount": 20}`)
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID, "missing id gets a UUID")
	assert.Equal(t, generic.ConditionNone, plan.Condition)
	assert.Equal(t, 0, plan.OffsetMinutes)
}

func TestBonusFactory_Rejects(t *testing.T) {
	f := factory.NewBonusFactory()

	cases := map[string]string{
		"missing name":      `{"amount": "10.00"}`,
		"negative amount":   `{"name": "x", "amount": "-1.00"}`,
		"three decimals":    `{"name": "x", "amount": "1.005"}`,
		"unknown condition": `{"name": "x", "amount": "1", "condition": "ALWAYS"}`,
		"positive offset":   `{"name": "x", "amount": "1", "offset_minutes": 5}`,
		"malformed":         `{"name": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseBonusPlan(body)
			require.Error(t, err)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestBonusFactory_ToJSONRoundTrip(t *testing.T) {
	f := factory.NewBonusFactory()
	plan := generic.BonusPlan{
		ID: "bp-2", Name: "Exacto", Amount: generic.MustParseDecimal("35.50"),
		Condition: generic.ConditionPunctuality,
	}

	back, err := f.FromJSON(f.ToJSON(plan))
	require.NoError(t, err)
	assert.Equal(t, plan.ID, back.ID)
	assert.True(t, plan.Amount.Equal(back.Amount))
	assert.Equal(t, plan.Condition, back.Condition)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_Embedded(t *testing.T) {
	all, err := factory.Scenarios()
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "quincena", all[0].ID)
	assert.Equal(t, "retardos", all[1].ID)

	_, ok, err := factory.FindScenario("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseScenario_RequiresID(t *testing.T) {
	_, err := factory.ParseScenario([]byte("name: sin id\n"))
	require.Error(t, err)
	assert.True(t, generic.IsClientError(err))
}

func TestScenarioLoader_ExpandsShifts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	sc, ok, err := factory.FindScenario("quincena")
	require.NoError(t, err)
	require.True(t, ok)

	// WHEN the scenario is loaded
	require.NoError(t, factory.NewScenarioLoader(mem, cst, evaluate).Load(ctx, sc))

	// THEN shifts skip listed dates and rest days, plus the explicit events
	p := generic.Period{Start: generic.NewDate(2025, time.October, 1), End: generic.NewDate(2025, time.October, 15)}
	from, to := p.Bounds(cst)
	events, err := mem.LoadEvents(ctx, "emp-ana", from, to)
	require.NoError(t, err)
	assert.Len(t, events, 24)

	// AND clock-ins carry punctuality
	for _, ev := range events {
		if ev.Kind != generic.ClockIn {
			assert.Equal(t, generic.PunctualityNone, ev.Punctuality)
			continue
		}
		if generic.DateOf(ev.At, cst).Day() == 10 {
			assert.Equal(t, generic.Late, ev.Punctuality)
		} else {
			assert.Equal(t, generic.OnTime, ev.Punctuality)
		}
	}

	rest, err := mem.RestDays(ctx, "emp-luis")
	require.NoError(t, err)
	assert.ElementsMatch(t, []time.Weekday{time.Sunday, time.Saturday}, rest)
}

func TestScenarioLoader_Catalog(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	sc, _, err := factory.FindScenario("quincena")
	require.NoError(t, err)
	require.NoError(t, factory.NewScenarioLoader(mem, cst, evaluate).Load(ctx, sc))

	titles, err := mem.ListCatalog(ctx, generic.CatalogTitles)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "Almacenista", titles[0].Name)
	assert.Equal(t, "300.00", generic.FormatMoney(titles[0].DailySalary))

	reasons, err := mem.ListCatalog(ctx, generic.CatalogPermissionReasons)
	require.NoError(t, err)
	names := make([]string, len(reasons))
	for i, r := range reasons {
		names[i] = r.Name
	}
	assert.Contains(t, names, "Cita médica", "the scenario's permission uses a catalogued reason")
}

func TestScenarioLoader_Payroll(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	sc, _, err := factory.FindScenario("quincena")
	require.NoError(t, err)
	require.NoError(t, factory.NewScenarioLoader(mem, cst, evaluate).Load(ctx, sc))

	// WHEN payroll is computed for the first half of October
	engine := payroll.NewEngine(mem, attendance.NewReporter(mem, cst))
	p, err := generic.NewPeriod("2025-10-01", "2025-10-15")
	require.NoError(t, err)
	items, err := engine.Compute(ctx, p)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ana, ok := generic.PayrollRun{Items: items}.Item("emp-ana")
	require.True(t, ok)
	// THEN 12 worked days, 11 of them punctual, plus the commission
	assert.Equal(t, 12, ana.DaysWorked)
	assert.Equal(t, "3135.96", generic.FormatMoney(ana.BasePay))
	assert.Equal(t, "550.00", generic.FormatMoney(ana.BonusTotal))
	assert.Equal(t, "4185.96", generic.FormatMoney(ana.NetPay))
	assert.Empty(t, ana.AbsentDates)

	luis, ok := generic.PayrollRun{Items: items}.Item("emp-luis")
	require.True(t, ok)
	// AND vacation, rest days and the holiday are not paid as worked
	assert.Equal(t, 8, luis.DaysWorked)
	assert.Equal(t, "2400.00", generic.FormatMoney(luis.GrossEarnings))
	assert.Equal(t, "2250.00", generic.FormatMoney(luis.NetPay))
}

func TestScenarioLoader_UnknownEmployee(t *testing.T) {
	sc, err := factory.ParseScenario([]byte(`
id: broken
events:
  - {employee: ghost, date: "2025-10-01", time: "09:00", kind: CLOCK_IN}
`))
	require.NoError(t, err)

	err = factory.NewScenarioLoader(store.NewMemory(), cst, evaluate).Load(context.Background(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

func TestScenarioLoader_RepeatedPunchesGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// GIVEN three clock-ins on the same day
	sc, err := factory.ParseScenario([]byte(`
id: repetidos
employees:
  - {id: emp-ana, name: Ana, daily_salary: "100.00", hire_date: "2024-01-01", clock_in: "09:00"}
events:
  - {employee: emp-ana, date: "2025-10-06", time: "08:50", kind: CLOCK_IN}
  - {employee: emp-ana, date: "2025-10-06", time: "08:55", kind: CLOCK_IN}
  - {employee: emp-ana, date: "2025-10-06", time: "09:10", kind: CLOCK_IN}
`))
	require.NoError(t, err)

	// WHEN the scenario is loaded
	require.NoError(t, factory.NewScenarioLoader(mem, cst, evaluate).Load(ctx, sc))

	// THEN every event is stored under its own id
	day := generic.Period{Start: generic.NewDate(2025, time.October, 6), End: generic.NewDate(2025, time.October, 6)}
	from, to := day.Bounds(cst)
	events, err := mem.LoadEvents(ctx, "emp-ana", from, to)
	require.NoError(t, err)
	require.Len(t, events, 3)

	ids := make(map[generic.EventID]bool)
	for _, ev := range events {
		ids[ev.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.True(t, ids["repetidos-emp-ana-2025-10-06-clock_in"])
	assert.True(t, ids["repetidos-emp-ana-2025-10-06-clock_in-2"])
	assert.True(t, ids["repetidos-emp-ana-2025-10-06-clock_in-3"])
}
