package payroll_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/generic/store"
	"github.com/warp/timeclock/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var cst = time.FixedZone("CST", -6*60*60)

var week = generic.Period{
	Start: generic.NewDate(2025, time.October, 6),
	End:   generic.NewDate(2025, time.October, 12),
}

func local(d, hour, minute int) time.Time {
	return time.Date(2025, time.October, d, hour, minute, 0, 0, cst)
}

type fixture struct {
	store    *store.Memory
	reporter *attendance.Reporter
	engine   *payroll.Engine
}

func newFixture(t *testing.T) *fixture {
	mem := store.NewMemory()
	reporter := attendance.NewReporter(mem, cst)
	return &fixture{store: mem, reporter: reporter, engine: payroll.NewEngine(mem, reporter)}
}

func (f *fixture) employee(t *testing.T, id, salary string, clockIn *generic.ClockTime, plan *generic.BonusPlanID) {
	require.NoError(t, f.store.CreateEmployee(context.Background(), generic.Employee{
		ID:          generic.EmployeeID(id),
		Name:        "Employee " + id,
		Title:       "Operador",
		DailySalary: generic.MustParseDecimal(salary),
		ClockIn:     clockIn,
		BonusPlanID: plan,
		HireDate:    generic.NewDate(2024, time.March, 1),
	}))
}

func (f *fixture) punchIn(t *testing.T, emp string, at time.Time) {
	require.NoError(t, f.store.AppendEvent(context.Background(), generic.AttendanceEvent{
		ID:         generic.EventID(emp + at.Format(time.RFC3339)),
		EmployeeID: generic.EmployeeID(emp),
		Kind:       generic.ClockIn,
		At:         at,
	}))
}

func itemFor(t *testing.T, items []generic.LineItem, id string) generic.LineItem {
	for _, it := range items {
		if it.EmployeeID == generic.EmployeeID(id) {
			return it
		}
	}
	t.Fatalf("no line item for %s", id)
	return generic.LineItem{}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestCompute_ExactDecimalArithmetic(t *testing.T) {
	// GIVEN: dailySalary 261.33, six worked days, commission 500, deduction 200
	// THEN: base 1567.98, gross 2067.98, net 1867.98

	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "261.33", nil, nil)

	for d := 6; d <= 11; d++ {
		f.punchIn(t, "emp-1", local(d, 9, 0))
	}
	require.NoError(t, f.store.CreateCommission(ctx, generic.Commission{
		ID: "c", EmployeeID: "emp-1", Amount: generic.MustParseDecimal("500.00"),
		ApplyOn: generic.NewDate(2025, time.October, 10),
	}))
	require.NoError(t, f.store.CreateDeduction(ctx, generic.Deduction{
		ID: "d", EmployeeID: "emp-1", Amount: generic.MustParseDecimal("200.00"),
		ApplyOn: generic.NewDate(2025, time.October, 12),
	}))

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	it := itemFor(t, items, "emp-1")

	assert.Equal(t, 6, it.DaysWorked)
	assert.Equal(t, "1567.98", generic.FormatMoney(it.BasePay))
	assert.Equal(t, "0.00", generic.FormatMoney(it.BonusTotal))
	assert.Equal(t, "500.00", generic.FormatMoney(it.CommissionTotal))
	assert.Equal(t, "200.00", generic.FormatMoney(it.DeductionTotal))
	assert.Equal(t, "2067.98", generic.FormatMoney(it.GrossEarnings))
	assert.Equal(t, "1867.98", generic.FormatMoney(it.NetPay))
	assert.True(t, it.NetPay.Equal(generic.MustParseDecimal("1867.98")), "no rounding drift")
	require.Len(t, it.AbsentDates, 1)
	assert.Equal(t, "2025-10-12", it.AbsentDates[0].String())
}

func TestCompute_AdjustmentsOutsidePeriodIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "100.00", nil, nil)

	require.NoError(t, f.store.CreateCommission(ctx, generic.Commission{
		ID: "c", EmployeeID: "emp-1", Amount: generic.MustParseDecimal("500.00"),
		ApplyOn: generic.NewDate(2025, time.October, 13),
	}))

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	assert.True(t, itemFor(t, items, "emp-1").CommissionTotal.IsZero())
}

// =============================================================================
// BONUS
// =============================================================================

func TestCompute_PunctualityBonusPerQualifyingDay(t *testing.T) {
	// GIVEN: Plan of 50.00 requiring 10 minutes early against 09:00
	// WHEN: Arrivals at 08:49, 08:50, 08:51
	// THEN: Two qualifying days -> bonus 100.00

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateBonusPlan(ctx, generic.BonusPlan{
		ID: "bp", Name: "Puntualidad", Amount: generic.MustParseDecimal("50.00"),
		Condition: generic.ConditionPunctuality, OffsetMinutes: -10,
	}))
	planID := generic.BonusPlanID("bp")
	nine := generic.ClockTime{Hour: 9}
	f.employee(t, "emp-1", "200.00", &nine, &planID)

	f.punchIn(t, "emp-1", local(6, 8, 49))
	f.punchIn(t, "emp-1", local(7, 8, 50))
	f.punchIn(t, "emp-1", local(8, 8, 51))

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	it := itemFor(t, items, "emp-1")

	assert.Equal(t, 3, it.DaysWorked)
	assert.Equal(t, "100.00", generic.FormatMoney(it.BonusTotal))
	assert.Equal(t, "700.00", generic.FormatMoney(it.GrossEarnings))
}

func TestCompute_MissingScheduleMeansNoBonusNotFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateBonusPlan(ctx, generic.BonusPlan{
		ID: "bp", Amount: generic.MustParseDecimal("50.00"), Condition: generic.ConditionPunctuality,
	}))
	planID := generic.BonusPlanID("bp")
	f.employee(t, "emp-1", "200.00", nil, &planID)
	nine := generic.ClockTime{Hour: 9}
	f.employee(t, "emp-2", "200.00", &nine, &planID)

	f.punchIn(t, "emp-1", local(6, 7, 0))
	f.punchIn(t, "emp-2", local(6, 7, 0))

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, itemFor(t, items, "emp-1").BonusTotal.IsZero())
	assert.Equal(t, "50.00", generic.FormatMoney(itemFor(t, items, "emp-2").BonusTotal))
}

func TestCompute_RestDayStrayClockInNotCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "261.33", nil, nil)
	require.NoError(t, f.store.SetRestDays(ctx, "emp-1", []time.Weekday{time.Sunday}))

	f.punchIn(t, "emp-1", local(11, 9, 0)) // Saturday
	f.punchIn(t, "emp-1", local(12, 9, 0)) // Sunday, rest

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	it := itemFor(t, items, "emp-1")
	assert.Equal(t, 1, it.DaysWorked)
	assert.Equal(t, "261.33", generic.FormatMoney(it.BasePay))
}

// =============================================================================
// ACTIVE SET AND CONSISTENCY
// =============================================================================

func TestCompute_ExcludesEmployeesHiredAfterPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "100.00", nil, nil)
	require.NoError(t, f.store.CreateEmployee(ctx, generic.Employee{
		ID: "late-hire", Name: "Late", DailySalary: generic.MustParseDecimal("100"),
		HireDate: generic.NewDate(2025, time.October, 13),
	}))

	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, generic.EmployeeID("emp-1"), items[0].EmployeeID)
}

func TestCompute_DaysWorkedMatchesReport(t *testing.T) {
	// GIVEN: A mix of holiday, vacation and worked days
	// THEN: payroll daysWorked == number of WORKED entries in the report

	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "150.00", nil, nil)

	require.NoError(t, f.store.CreateHoliday(ctx, generic.Holiday{ID: "h", Date: generic.NewDate(2025, time.October, 7), Name: "Fiesta"}))
	require.NoError(t, f.store.CreateVacation(ctx, generic.VacationRange{
		ID: "v", EmployeeID: "emp-1",
		Start: generic.NewDate(2025, time.October, 9), End: generic.NewDate(2025, time.October, 10),
	}))
	for d := 6; d <= 11; d++ {
		f.punchIn(t, "emp-1", local(d, 9, 0))
	}

	report, err := f.reporter.Report(ctx, "emp-1", week)
	require.NoError(t, err)
	items, err := f.engine.Compute(ctx, week)
	require.NoError(t, err)

	assert.Equal(t, report.Counts[attendance.StatusWorked], itemFor(t, items, "emp-1").DaysWorked)
	assert.Equal(t, 3, itemFor(t, items, "emp-1").DaysWorked)
}

func TestCompute_InvalidPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Compute(context.Background(), generic.Period{Start: week.End, End: week.Start})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// SAVED RUNS
// =============================================================================

func TestSave_RunIsFrozen(t *testing.T) {
	// GIVEN: A saved run
	// WHEN: Salary changes and a second run is saved for the same period
	// THEN: The first run still shows the original figures

	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, "emp-1", "100.00", nil, nil)
	f.punchIn(t, "emp-1", local(6, 9, 0))

	first, err := f.engine.Save(ctx, "", week)
	require.NoError(t, err)
	assert.Equal(t, payroll.DefaultRunName(week), first.Name)

	emp, err := f.store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	emp.DailySalary = generic.MustParseDecimal("999.00")
	require.NoError(t, f.store.UpdateEmployee(ctx, emp))

	second, err := f.engine.Save(ctx, "Semana 41 bis", week)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stored, err := f.store.GetPayrollRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", generic.FormatMoney(stored.Items[0].NetPay))

	again, err := f.store.GetPayrollRun(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "999.00", generic.FormatMoney(again.Items[0].NetPay))
}

// =============================================================================
// RECEIPT
// =============================================================================

func TestRenderReceipt(t *testing.T) {
	run := generic.PayrollRun{ID: "run-1", Period: week}
	it := generic.LineItem{
		EmployeeID:      "emp-1",
		Name:            "Ana López",
		Title:           "Operador",
		DailySalary:     generic.MustParseDecimal("261.33"),
		DaysWorked:      6,
		BasePay:         generic.MustParseDecimal("1567.98"),
		CommissionTotal: generic.MustParseDecimal("1500.00"),
		DeductionTotal:  generic.MustParseDecimal("200.00"),
		GrossEarnings:   generic.MustParseDecimal("3067.98"),
		NetPay:          generic.MustParseDecimal("2867.98"),
		AbsentDates:     []generic.Date{generic.NewDate(2025, time.October, 12)},
	}

	var buf bytes.Buffer
	require.NoError(t, payroll.RenderReceipt(&buf, payroll.Issuer{Name: "Envases SA de CV", TaxID: "EUN010101AAA"}, run, it))
	out := buf.String()

	assert.Contains(t, out, "ENVASES SA DE CV")
	assert.Contains(t, out, "R.F.C.: EUN010101AAA")
	assert.Contains(t, out, "DEL 2025-10-06 AL 2025-10-12")
	assert.Contains(t, out, "2025-10-12")
	assert.Contains(t, out, "$1,500.00")
	assert.Contains(t, out, "-$200.00")
	assert.Contains(t, out, "$2,867.98")
	assert.NotContains(t, out, "BONO PUNTUALIDAD", "zero bonus is omitted")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.00", payroll.Money(generic.MustParseDecimal("0")))
	assert.Equal(t, "$1,234,567.80", payroll.Money(generic.MustParseDecimal("1234567.8")))
	assert.Equal(t, "-$12.50", payroll.Money(generic.MustParseDecimal("-12.5")))
}
