package factory

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// SCENARIOS - Demo data as YAML
// =============================================================================

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// Scenario is one demo data set. Times are wall-clock in the organisation's
// zone; dates are YYYY-MM-DD.
type Scenario struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Catalog     ScenarioCatalog      `yaml:"catalog"`
	BonusPlans  []ScenarioBonusPlan  `yaml:"bonus_plans"`
	Employees   []ScenarioEmployee   `yaml:"employees"`
	Holidays    []ScenarioHoliday    `yaml:"holidays"`
	Vacations   []ScenarioRange      `yaml:"vacations"`
	Permissions []ScenarioRange      `yaml:"permissions"`
	Commissions []ScenarioAdjustment `yaml:"commissions"`
	Deductions  []ScenarioAdjustment `yaml:"deductions"`
	Shifts      []ScenarioShift      `yaml:"shifts"`
	Events      []ScenarioEvent      `yaml:"events"`
}

type ScenarioCatalog struct {
	Titles            []ScenarioTitle `yaml:"titles"`
	Branches          []string        `yaml:"branches"`
	PermissionReasons []string        `yaml:"permission_reasons"`
}

type ScenarioTitle struct {
	Name        string `yaml:"name"`
	DailySalary string `yaml:"daily_salary"`
}

type ScenarioBonusPlan struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Amount        string `yaml:"amount"`
	Condition     string `yaml:"condition"`
	OffsetMinutes int    `yaml:"offset_minutes"`
}

type ScenarioEmployee struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Branch      string `yaml:"branch"`
	Title       string `yaml:"title"`
	DailySalary string `yaml:"daily_salary"`
	BonusPlan   string `yaml:"bonus_plan"`
	HireDate    string `yaml:"hire_date"`
	ClockIn     string `yaml:"clock_in"`
	ClockOut    string `yaml:"clock_out"`
	RestDays    []int  `yaml:"rest_days"`
}

type ScenarioHoliday struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type ScenarioRange struct {
	Employee string `yaml:"employee"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Reason   string `yaml:"reason"`
}

type ScenarioAdjustment struct {
	Employee string `yaml:"employee"`
	Amount   string `yaml:"amount"`
	Label    string `yaml:"label"`
	ApplyOn  string `yaml:"apply_on"`
}

// ScenarioShift expands into one clock-in and one clock-out per day in
// [from, to], skipping the listed dates and the employee's rest days.
type ScenarioShift struct {
	Employee string   `yaml:"employee"`
	From     string   `yaml:"from"`
	To       string   `yaml:"to"`
	In       string   `yaml:"in"`
	Out      string   `yaml:"out"`
	Skip     []string `yaml:"skip"`
}

type ScenarioEvent struct {
	Employee string `yaml:"employee"`
	Date     string `yaml:"date"`
	Time     string `yaml:"time"`
	Kind     string `yaml:"kind"`
}

// ParseScenario decodes one YAML document.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.ID == "" {
		return Scenario{}, &generic.ValidationError{Field: "id", Message: "scenario id required"}
	}
	return sc, nil
}

// Scenarios returns the embedded scenarios ordered by id.
func Scenarios() ([]Scenario, error) {
	entries, err := fs.Glob(scenarioFS, "scenarios/*.yaml")
	if err != nil {
		return nil, err
	}
	var result []Scenario
	for _, name := range entries {
		data, err := scenarioFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		sc, err := ParseScenario(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		result = append(result, sc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindScenario returns the embedded scenario with the given id.
func FindScenario(id string) (Scenario, bool, error) {
	all, err := Scenarios()
	if err != nil {
		return Scenario{}, false, err
	}
	for _, sc := range all {
		if sc.ID == id {
			return sc, true, nil
		}
	}
	return Scenario{}, false, nil
}

// =============================================================================
// LOADER
// =============================================================================

// ScenarioLoader writes a scenario into a store. Clock-ins are tagged with
// the punctuality evaluator supplied by the caller.
type ScenarioLoader struct {
	store    generic.Store
	loc      *time.Location
	bonus    *BonusFactory
	evaluate func(at time.Time, scheduled *generic.ClockTime) generic.Punctuality
}

func NewScenarioLoader(store generic.Store, loc *time.Location,
	evaluate func(at time.Time, scheduled *generic.ClockTime) generic.Punctuality) *ScenarioLoader {
	return &ScenarioLoader{store: store, loc: loc, bonus: NewBonusFactory(), evaluate: evaluate}
}

// Load writes every entity of sc. It does not reset the store.
func (l *ScenarioLoader) Load(ctx context.Context, sc Scenario) error {
	if err := l.loadCatalog(ctx, sc); err != nil {
		return err
	}

	for _, bp := range sc.BonusPlans {
		amount, err := generic.ParseMoney(bp.Amount)
		if err != nil {
			return fmt.Errorf("bonus plan %s: %w", bp.ID, err)
		}
		plan, err := l.bonus.FromJSON(BonusPlanJSON{
			ID: bp.ID, Name: bp.Name, Amount: amount, Condition: bp.Condition, OffsetMinutes: bp.OffsetMinutes,
		})
		if err != nil {
			return fmt.Errorf("bonus plan %s: %w", bp.ID, err)
		}
		if err := l.store.CreateBonusPlan(ctx, plan); err != nil {
			return err
		}
	}

	employees := make(map[generic.EmployeeID]generic.Employee, len(sc.Employees))
	restDays := make(map[generic.EmployeeID]map[time.Weekday]bool)
	for _, se := range sc.Employees {
		emp, err := se.toEmployee()
		if err != nil {
			return fmt.Errorf("employee %s: %w", se.ID, err)
		}
		if err := l.store.CreateEmployee(ctx, emp); err != nil {
			return fmt.Errorf("employee %s: %w", se.ID, err)
		}
		days := make([]time.Weekday, len(se.RestDays))
		restDays[emp.ID] = make(map[time.Weekday]bool)
		for i, d := range se.RestDays {
			if d < 0 || d > 6 {
				return &generic.ValidationError{Field: "rest_days", Message: "weekday must be 0-6"}
			}
			days[i] = time.Weekday(d)
			restDays[emp.ID][time.Weekday(d)] = true
		}
		if len(days) > 0 {
			if err := l.store.SetRestDays(ctx, emp.ID, days); err != nil {
				return fmt.Errorf("employee %s: %w", se.ID, err)
			}
		}
		employees[emp.ID] = emp
	}

	for i, h := range sc.Holidays {
		d, err := generic.ParseDate(h.Date)
		if err != nil {
			return err
		}
		if err := l.store.CreateHoliday(ctx, generic.Holiday{
			ID: fmt.Sprintf("%s-holiday-%d", sc.ID, i), Date: d, Name: h.Name,
		}); err != nil {
			return err
		}
	}

	for i, r := range sc.Vacations {
		p, err := generic.NewPeriod(r.From, r.To)
		if err != nil {
			return err
		}
		if err := l.store.CreateVacation(ctx, generic.VacationRange{
			ID: fmt.Sprintf("%s-vacation-%d", sc.ID, i), EmployeeID: generic.EmployeeID(r.Employee),
			Start: p.Start, End: p.End, CreatedAt: sequence(i),
		}); err != nil {
			return err
		}
	}

	for i, r := range sc.Permissions {
		p, err := generic.NewPeriod(r.From, r.To)
		if err != nil {
			return err
		}
		if err := l.store.CreatePermission(ctx, generic.PermissionRange{
			ID: fmt.Sprintf("%s-permission-%d", sc.ID, i), EmployeeID: generic.EmployeeID(r.Employee),
			Start: p.Start, End: p.End, Reason: r.Reason, CreatedAt: sequence(i),
		}); err != nil {
			return err
		}
	}

	for i, a := range sc.Commissions {
		c, err := a.parse()
		if err != nil {
			return err
		}
		c.ID = fmt.Sprintf("%s-commission-%d", sc.ID, i)
		if err := l.store.CreateCommission(ctx, c); err != nil {
			return err
		}
	}

	for i, a := range sc.Deductions {
		c, err := a.parse()
		if err != nil {
			return err
		}
		d := generic.Deduction(c)
		d.ID = fmt.Sprintf("%s-deduction-%d", sc.ID, i)
		if err := l.store.CreateDeduction(ctx, d); err != nil {
			return err
		}
	}

	events, err := l.expandEvents(sc, employees, restDays)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := l.store.AppendEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (l *ScenarioLoader) loadCatalog(ctx context.Context, sc Scenario) error {
	var entries []generic.CatalogEntry
	for i, t := range sc.Catalog.Titles {
		e := generic.CatalogEntry{
			ID: fmt.Sprintf("%s-title-%d", sc.ID, i), Kind: generic.CatalogTitles, Name: t.Name,
			DailySalary: decimal.Zero,
		}
		if t.DailySalary != "" {
			salary, err := generic.ParseMoney(t.DailySalary)
			if err != nil {
				return fmt.Errorf("title %s: %w", t.Name, err)
			}
			e.DailySalary = salary
		}
		entries = append(entries, e)
	}
	for i, name := range sc.Catalog.Branches {
		entries = append(entries, generic.CatalogEntry{
			ID: fmt.Sprintf("%s-branch-%d", sc.ID, i), Kind: generic.CatalogBranches, Name: name,
		})
	}
	for i, name := range sc.Catalog.PermissionReasons {
		entries = append(entries, generic.CatalogEntry{
			ID: fmt.Sprintf("%s-reason-%d", sc.ID, i), Kind: generic.CatalogPermissionReasons, Name: name,
		})
	}
	for _, e := range entries {
		if err := l.store.CreateCatalogEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (l *ScenarioLoader) expandEvents(sc Scenario, employees map[generic.EmployeeID]generic.Employee,
	restDays map[generic.EmployeeID]map[time.Weekday]bool) ([]generic.AttendanceEvent, error) {
	var events []generic.AttendanceEvent
	// Several punches of one kind on one day share a base id; later ones get -2, -3...
	seq := make(map[string]int)
	add := func(emp generic.EmployeeID, kind generic.EventKind, d generic.Date, clock string) error {
		ct, err := generic.ParseClockTime(clock)
		if err != nil {
			return err
		}
		at := d.At(ct, l.loc)
		base := fmt.Sprintf("%s-%s-%s-%s", sc.ID, emp, d, strings.ToLower(string(kind)))
		seq[base]++
		id := base
		if n := seq[base]; n > 1 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		ev := generic.AttendanceEvent{
			ID:         generic.EventID(id),
			EmployeeID: emp,
			Kind:       kind,
			At:         at,
			Source:     "scenario",
			CreatedAt:  at,
		}
		if kind == generic.ClockIn && l.evaluate != nil {
			ev.Punctuality = l.evaluate(at, employees[emp].ClockIn)
		}
		events = append(events, ev)
		return nil
	}

	for _, sh := range sc.Shifts {
		emp := generic.EmployeeID(sh.Employee)
		if _, ok := employees[emp]; !ok {
			return nil, fmt.Errorf("shift: %w: %s", generic.ErrEmployeeNotFound, sh.Employee)
		}
		p, err := generic.NewPeriod(sh.From, sh.To)
		if err != nil {
			return nil, err
		}
		skip := make(map[string]bool, len(sh.Skip))
		for _, s := range sh.Skip {
			skip[s] = true
		}
		for _, d := range p.Days() {
			if skip[d.String()] || restDays[emp][d.Weekday()] {
				continue
			}
			if sh.In != "" {
				if err := add(emp, generic.ClockIn, d, sh.In); err != nil {
					return nil, err
				}
			}
			if sh.Out != "" {
				if err := add(emp, generic.ClockOut, d, sh.Out); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, se := range sc.Events {
		emp := generic.EmployeeID(se.Employee)
		if _, ok := employees[emp]; !ok {
			return nil, fmt.Errorf("event: %w: %s", generic.ErrEmployeeNotFound, se.Employee)
		}
		kind := generic.EventKind(strings.ToUpper(se.Kind))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown kind %q", generic.ErrInvalidEvent, se.Kind)
		}
		d, err := generic.ParseDate(se.Date)
		if err != nil {
			return nil, err
		}
		if err := add(emp, kind, d, se.Time); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (se ScenarioEmployee) toEmployee() (generic.Employee, error) {
	salary, err := generic.ParseMoney(se.DailySalary)
	if err != nil {
		return generic.Employee{}, err
	}
	emp := generic.Employee{
		ID:          generic.EmployeeID(se.ID),
		Name:        se.Name,
		Branch:      se.Branch,
		Title:       se.Title,
		DailySalary: salary,
	}
	if se.BonusPlan != "" {
		id := generic.BonusPlanID(se.BonusPlan)
		emp.BonusPlanID = &id
	}
	if se.HireDate != "" {
		if emp.HireDate, err = generic.ParseDate(se.HireDate); err != nil {
			return generic.Employee{}, err
		}
	}
	if se.ClockIn != "" {
		ct, err := generic.ParseClockTime(se.ClockIn)
		if err != nil {
			return generic.Employee{}, err
		}
		emp.ClockIn = &ct
	}
	if se.ClockOut != "" {
		ct, err := generic.ParseClockTime(se.ClockOut)
		if err != nil {
			return generic.Employee{}, err
		}
		emp.ClockOut = &ct
	}
	return emp, nil
}

func (a ScenarioAdjustment) parse() (generic.Commission, error) {
	amount, err := generic.ParseMoney(a.Amount)
	if err != nil {
		return generic.Commission{}, err
	}
	applyOn, err := generic.ParseDate(a.ApplyOn)
	if err != nil {
		return generic.Commission{}, err
	}
	return generic.Commission{
		EmployeeID: generic.EmployeeID(a.Employee),
		Amount:     amount,
		Label:      a.Label,
		ApplyOn:    applyOn,
	}, nil
}

// sequence gives ranges of one scenario a deterministic creation order.
func sequence(i int) time.Time {
	return time.Date(2000, time.January, 1, 0, 0, i, 0, time.UTC)
}
