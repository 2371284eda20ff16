/*
Package payroll computes per-employee earnings over a pay period.

PURPOSE:
  Consumes the day classification of every active employee and the
  one-off commissions and deductions pinned to the period, and produces
  one line item per employee with every intermediate figure.

ARITHMETIC (exact decimal, no floats):
  basePay       = dailySalary * daysWorked
  bonusTotal    = plan.Amount * qualifying days (PUNCTUALITY plans only)
  grossEarnings = basePay + bonusTotal + commissionTotal
  netPay        = grossEarnings - deductionTotal

BONUS ELIGIBILITY:
  A day qualifies when it is WORKED and its first clock-in is at or
  before the scheduled clock-in shifted by the plan's offset. Employees
  without a scheduled clock-in are silently not eligible.

ACTIVE EMPLOYEES:
  Every employee hired on or before the period end. Employees without a
  hire date are always active.

IMMUTABILITY:
  Save() freezes the computed items into a PayrollRun. Later changes to
  salaries, plans or events never touch a saved run.

SEE ALSO:
  - attendance/punctuality.go: QualifiesForBonus
  - receipt.go: renders a frozen line item
*/
package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store    generic.Store
	reporter *attendance.Reporter
	now      func() time.Time
}

func NewEngine(store generic.Store, reporter *attendance.Reporter) *Engine {
	return &Engine{store: store, reporter: reporter, now: time.Now}
}

// Compute returns one line item per active employee, ordered by name.
// Nothing is persisted.
func (e *Engine) Compute(ctx context.Context, p generic.Period) ([]generic.LineItem, error) {
	if err := e.reporter.ValidatePeriod(p); err != nil {
		return nil, err
	}

	employees, err := e.store.ListEmployees(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	plans, err := e.store.ListBonusPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus plans: %w", err)
	}
	planByID := make(map[generic.BonusPlanID]generic.BonusPlan, len(plans))
	for _, plan := range plans {
		planByID[plan.ID] = plan
	}

	commissions, err := e.store.CommissionsInRange(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load commissions: %w", err)
	}
	deductions, err := e.store.DeductionsInRange(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load deductions: %w", err)
	}
	commissionBy := make(map[generic.EmployeeID]decimal.Decimal)
	for _, c := range commissions {
		commissionBy[c.EmployeeID] = commissionBy[c.EmployeeID].Add(c.Amount)
	}
	deductionBy := make(map[generic.EmployeeID]decimal.Decimal)
	for _, d := range deductions {
		deductionBy[d.EmployeeID] = deductionBy[d.EmployeeID].Add(d.Amount)
	}

	items := make([]generic.LineItem, 0, len(employees))
	for _, emp := range employees {
		if !emp.ActiveDuring(p) {
			continue
		}
		days, err := e.reporter.Days(ctx, emp.ID, p)
		if err != nil {
			return nil, fmt.Errorf("failed to classify %s: %w", emp.ID, err)
		}

		var plan *generic.BonusPlan
		if emp.BonusPlanID != nil {
			if bp, ok := planByID[*emp.BonusPlanID]; ok {
				plan = &bp
			}
		}

		items = append(items, ComputeLineItem(emp, days, plan,
			commissionBy[emp.ID], deductionBy[emp.ID], e.reporter.Location()))
	}
	return items, nil
}

// ComputeLineItem is the pure per-employee computation.
func ComputeLineItem(emp generic.Employee, days []attendance.DayStatus, plan *generic.BonusPlan,
	commissionTotal, deductionTotal decimal.Decimal, loc *time.Location) generic.LineItem {
	var (
		daysWorked int
		qualifying int64
		absent     []generic.Date
	)
	for _, d := range days {
		switch d.Status {
		case attendance.StatusWorked:
			daysWorked++
			if attendance.QualifiesForBonus(d, emp.ClockIn, plan, loc) {
				qualifying++
			}
		case attendance.StatusAbsent:
			absent = append(absent, d.Date)
		}
	}

	bonusTotal := decimal.Zero
	if plan != nil && qualifying > 0 {
		bonusTotal = plan.Amount.Mul(decimal.NewFromInt(qualifying))
	}

	basePay := emp.DailySalary.Mul(decimal.NewFromInt(int64(daysWorked)))
	gross := basePay.Add(bonusTotal).Add(commissionTotal)

	return generic.LineItem{
		EmployeeID:      emp.ID,
		Name:            emp.Name,
		Title:           emp.Title,
		HireDate:        emp.HireDate,
		DailySalary:     emp.DailySalary,
		DaysWorked:      daysWorked,
		BasePay:         basePay,
		BonusTotal:      bonusTotal,
		CommissionTotal: commissionTotal,
		DeductionTotal:  deductionTotal,
		GrossEarnings:   gross,
		NetPay:          gross.Sub(deductionTotal),
		AbsentDates:     absent,
	}
}

// =============================================================================
// RUNS
// =============================================================================

// Build computes a run without saving it.
func (e *Engine) Build(ctx context.Context, name string, p generic.Period) (generic.PayrollRun, error) {
	items, err := e.Compute(ctx, p)
	if err != nil {
		return generic.PayrollRun{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultRunName(p)
	}
	return generic.PayrollRun{
		ID:        generic.RunID(uuid.NewString()),
		Name:      name,
		Period:    p,
		CreatedAt: e.now(),
		Items:     items,
	}, nil
}

// Save recomputes the period and persists an immutable run.
func (e *Engine) Save(ctx context.Context, name string, p generic.Period) (generic.PayrollRun, error) {
	run, err := e.Build(ctx, name, p)
	if err != nil {
		return generic.PayrollRun{}, err
	}
	if err := e.store.SavePayrollRun(ctx, run); err != nil {
		return generic.PayrollRun{}, fmt.Errorf("failed to save payroll run: %w", err)
	}
	return run, nil
}

func DefaultRunName(p generic.Period) string {
	return fmt.Sprintf("Nómina %s al %s", p.Start, p.End)
}
