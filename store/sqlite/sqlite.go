/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store using SQLite: employees, the append-only
  attendance event log, calendar exceptions, compensation rows and
  immutable payroll runs.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on attendance_events
  - No UPDATE statements on payroll_runs or payroll_line_items
  - A run and its line items are inserted in one database transaction

KEY TABLES:
  employees:          Identity, schedule and pay configuration
  attendance_events:  Immutable clock-in / clock-out log
  holidays:           Organisation-wide non-working dates (one per date)
  rest_days:          (employee, weekday) pairs
  vacations:          Inclusive date ranges per employee
  permissions:        Inclusive date ranges per employee with a reason
  bonus_plans:        Flat bonus definitions
  commissions:        One-off earnings pinned to an apply-on date
  deductions:         One-off deductions pinned to an apply-on date
  catalog_entries:    Titles, branches and permission reasons, unique per kind
  payroll_runs:       Saved run headers
  payroll_line_items: Frozen per-employee breakdowns

STORAGE FORMATS:
  - Dates as TEXT "2006-01-02"
  - Instants as TEXT in UTC with fixed nanosecond width, so that string
    comparison orders them correctly in range queries
  - Money as TEXT decimal strings, never REAL

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Statements inside a database
  transaction only ever go through the *sql.Tx. The CLI and the server
  may share one file: a transaction that fails with SQLITE_BUSY or
  SQLITE_LOCKED is rolled back and run again from the start.

USAGE:
  store, err := sqlite.New("./timeclock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/generic"
)

// instantLayout keeps every stored instant the same width.
const instantLayout = "2006-01-02T15:04:05.000000000Z"

const (
	txAttempts = 5
	txBackoff  = 20 * time.Millisecond
)

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Bonus plans
	CREATE TABLE IF NOT EXISTS bonus_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		condition TEXT NOT NULL,
		offset_minutes INTEGER NOT NULL DEFAULT 0
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		daily_salary TEXT NOT NULL,
		bonus_plan_id TEXT REFERENCES bonus_plans(id) ON DELETE SET NULL,
		hire_date TEXT,
		clock_in TEXT,
		clock_out TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_branch ON employees(branch);

	-- Attendance events (append-only)
	CREATE TABLE IF NOT EXISTS attendance_events (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		kind TEXT NOT NULL,
		at TEXT NOT NULL,
		punctuality TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Pairing reads one employee over a time window (hot path)
	CREATE INDEX IF NOT EXISTS idx_events_employee_at
		ON attendance_events(employee_id, at);
	CREATE INDEX IF NOT EXISTS idx_events_at
		ON attendance_events(at DESC);

	-- Calendar exceptions
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rest_days (
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		PRIMARY KEY (employee_id, weekday)
	);

	CREATE TABLE IF NOT EXISTS vacations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_employee
		ON vacations(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS permissions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_permissions_employee
		ON permissions(employee_id, start_date, end_date);

	-- Compensation
	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		apply_on TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commissions_apply_on ON commissions(apply_on);

	CREATE TABLE IF NOT EXISTS deductions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		apply_on TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deductions_apply_on ON deductions(apply_on);

	-- Catalogues
	CREATE TABLE IF NOT EXISTS catalog_entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		daily_salary TEXT NOT NULL DEFAULT '0',
		UNIQUE (kind, name)
	);

	-- Payroll runs (immutable)
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Line items are snapshots: no foreign key to employees
	CREATE TABLE IF NOT EXISTS payroll_line_items (
		run_id TEXT NOT NULL REFERENCES payroll_runs(id),
		position INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		hire_date TEXT,
		daily_salary TEXT NOT NULL,
		days_worked INTEGER NOT NULL,
		base_pay TEXT NOT NULL,
		bonus_total TEXT NOT NULL,
		commission_total TEXT NOT NULL,
		deduction_total TEXT NOT NULL,
		gross_earnings TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		absent_dates_json TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (run_id, employee_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, branch, title, daily_salary, bonus_plan_id, hire_date, clock_in, clock_out, created_at`

func (s *Store) CreateEmployee(ctx context.Context, e generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Name, e.Branch, e.Title, e.DailySalary.String(),
		bonusPlanRef(e.BonusPlanID), nullDate(e.HireDate),
		nullClock(e.ClockIn), nullClock(e.ClockOut), formatInstant(e.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return generic.ErrBonusPlanNotFound
		}
		if isUniqueConstraintError(err) {
			return fmt.Errorf("employee %s: %w", e.ID, generic.ErrDuplicateID)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (s *Store) UpdateEmployee(ctx context.Context, e generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET name = ?, branch = ?, title = ?, daily_salary = ?, bonus_plan_id = ?,
		    hire_date = ?, clock_in = ?, clock_out = ?
		WHERE id = ?
	`,
		e.Name, e.Branch, e.Title, e.DailySalary.String(), bonusPlanRef(e.BonusPlanID),
		nullDate(e.HireDate), nullClock(e.ClockIn), nullClock(e.ClockOut), e.ID,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return generic.ErrBonusPlanNotFound
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return e, err
}

func (s *Store) ListEmployees(ctx context.Context, branch string) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + employeeColumns + ` FROM employees`
	var args []any
	if branch != "" {
		query += ` WHERE branch = ?`
		args = append(args, branch)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) DeleteEmployee(ctx context.Context, id generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_events WHERE employee_id = ?`, id,
	).Scan(&events); err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	if events > 0 {
		return generic.ErrEmployeeReferenced
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrEmployeeNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (generic.Employee, error) {
	var (
		e                 generic.Employee
		salary            string
		bonusPlanID       sql.NullString
		hireDate          sql.NullString
		clockIn, clockOut sql.NullString
		createdAt         string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Branch, &e.Title, &salary, &bonusPlanID,
		&hireDate, &clockIn, &clockOut, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan employee: %w", err)
	}

	if e.DailySalary, err = parseStoredDecimal("daily_salary", salary); err != nil {
		return e, err
	}
	if bonusPlanID.Valid {
		id := generic.BonusPlanID(bonusPlanID.String)
		e.BonusPlanID = &id
	}
	e.HireDate = parseNullDate(hireDate)
	e.ClockIn = parseNullClock(clockIn)
	e.ClockOut = parseNullClock(clockOut)
	e.CreatedAt = parseInstant(createdAt)
	return e, nil
}

// =============================================================================
// ATTENDANCE EVENTS (append-only)
// =============================================================================

const eventColumns = `id, employee_id, kind, at, punctuality, source, idempotency_key, created_at`

// AppendEvent adds an event to the log.
func (s *Store) AppendEvent(ctx context.Context, ev generic.AttendanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID, ev.EmployeeID, ev.Kind, formatInstant(ev.At), ev.Punctuality, ev.Source,
		nullString(ev.IdempotencyKey), formatInstant(ev.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		if isForeignKeyError(err) {
			return generic.ErrEmployeeNotFound
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// LoadEvents returns events in [from, to) ordered by timestamp.
func (s *Store) LoadEvents(ctx context.Context, id generic.EmployeeID, from, to time.Time) ([]generic.AttendanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE employee_id = ? AND at >= ? AND at < ?
		ORDER BY at ASC, created_at ASC
	`, id, formatInstant(from), formatInstant(to))
}

// ListEvents returns the admin event log, newest first.
func (s *Store) ListEvents(ctx context.Context, f generic.EventFilter) ([]generic.AttendanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *f.EmployeeID)
	}
	if !f.From.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, formatInstant(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "at < ?")
		args = append(args, formatInstant(f.To))
	}

	query := `SELECT ` + eventColumns + ` FROM attendance_events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	return s.queryEvents(ctx, query, args...)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]generic.AttendanceEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []generic.AttendanceEvent
	for rows.Next() {
		var (
			ev             generic.AttendanceEvent
			at, createdAt  string
			idempotencyKey sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &ev.Kind, &at, &ev.Punctuality,
			&ev.Source, &idempotencyKey, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.At = parseInstant(at)
		ev.CreatedAt = parseInstant(createdAt)
		ev.IdempotencyKey = idempotencyKey.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// =============================================================================
// CALENDAR
// =============================================================================

func (s *Store) CreateHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holidays (id, date, name) VALUES (?, ?, ?)`,
		h.ID, h.Date.String(), h.Name,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateHoliday
		}
		return fmt.Errorf("failed to create holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "holidays", id)
}

func (s *Store) HolidaysInRange(ctx context.Context, p generic.Period) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, date, name FROM holidays`
	var args []any
	if !p.Start.IsZero() {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, p.Start.String(), p.End.String())
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var (
			h    generic.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date, _ = generic.ParseDate(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) RestDays(ctx context.Context, id generic.EmployeeID) ([]time.Weekday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT weekday FROM rest_days WHERE employee_id = ? ORDER BY weekday`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query rest days: %w", err)
	}
	defer rows.Close()

	var days []time.Weekday
	for rows.Next() {
		var wd int
		if err := rows.Scan(&wd); err != nil {
			return nil, fmt.Errorf("failed to scan rest day: %w", err)
		}
		days = append(days, time.Weekday(wd))
	}
	return days, rows.Err()
}

// SetRestDays replaces the employee's rest days atomically.
func (s *Store) SetRestDays(ctx context.Context, id generic.EmployeeID, days []time.Weekday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rest_days WHERE employee_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear rest days: %w", err)
		}
		for _, wd := range days {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rest_days (employee_id, weekday) VALUES (?, ?)`, id, int(wd),
			); err != nil {
				if isUniqueConstraintError(err) {
					return generic.ErrDuplicateRestDay
				}
				if isForeignKeyError(err) {
					return generic.ErrEmployeeNotFound
				}
				return fmt.Errorf("failed to insert rest day: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) CreateVacation(ctx context.Context, v generic.VacationRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vacations (id, employee_id, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.EmployeeID, v.Start.String(), v.End.String(), formatInstant(v.CreatedAt))
	return wrapRangeInsert(err, "vacation")
}

func (s *Store) GetVacation(ctx context.Context, id string) (generic.VacationRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		v                     generic.VacationRange
		start, end, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, start_date, end_date, created_at FROM vacations WHERE id = ?`, id,
	).Scan(&v.ID, &v.EmployeeID, &start, &end, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return v, generic.ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("failed to get vacation: %w", err)
	}
	v.Start, _ = generic.ParseDate(start)
	v.End, _ = generic.ParseDate(end)
	v.CreatedAt = parseInstant(createdAt)
	return v, nil
}

func (s *Store) DeleteVacation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "vacations", id)
}

func (s *Store) VacationsInRange(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]generic.VacationRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := rangeQuery(`SELECT id, employee_id, start_date, end_date, created_at FROM vacations`, id, p)
	query += ` ORDER BY start_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var result []generic.VacationRange
	for rows.Next() {
		var (
			v                     generic.VacationRange
			start, end, createdAt string
		)
		if err := rows.Scan(&v.ID, &v.EmployeeID, &start, &end, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacation: %w", err)
		}
		v.Start, _ = generic.ParseDate(start)
		v.End, _ = generic.ParseDate(end)
		v.CreatedAt = parseInstant(createdAt)
		result = append(result, v)
	}
	return result, rows.Err()
}

func (s *Store) CreatePermission(ctx context.Context, pr generic.PermissionRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pr.CreatedAt.IsZero() {
		pr.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (id, employee_id, start_date, end_date, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, pr.ID, pr.EmployeeID, pr.Start.String(), pr.End.String(), pr.Reason, formatInstant(pr.CreatedAt))
	return wrapRangeInsert(err, "permission")
}

func (s *Store) GetPermission(ctx context.Context, id string) (generic.PermissionRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		pr                    generic.PermissionRange
		start, end, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, start_date, end_date, reason, created_at FROM permissions WHERE id = ?`, id,
	).Scan(&pr.ID, &pr.EmployeeID, &start, &end, &pr.Reason, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pr, generic.ErrNotFound
	}
	if err != nil {
		return pr, fmt.Errorf("failed to get permission: %w", err)
	}
	pr.Start, _ = generic.ParseDate(start)
	pr.End, _ = generic.ParseDate(end)
	pr.CreatedAt = parseInstant(createdAt)
	return pr, nil
}

func (s *Store) DeletePermission(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "permissions", id)
}

// PermissionsInRange orders by creation so the earliest-created range wins overlaps.
func (s *Store) PermissionsInRange(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]generic.PermissionRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := rangeQuery(`SELECT id, employee_id, start_date, end_date, reason, created_at FROM permissions`, id, p)
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var result []generic.PermissionRange
	for rows.Next() {
		var (
			pr                    generic.PermissionRange
			start, end, createdAt string
		)
		if err := rows.Scan(&pr.ID, &pr.EmployeeID, &start, &end, &pr.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		pr.Start, _ = generic.ParseDate(start)
		pr.End, _ = generic.ParseDate(end)
		pr.CreatedAt = parseInstant(createdAt)
		result = append(result, pr)
	}
	return result, rows.Err()
}

// rangeQuery adds the employee filter and, for a non-zero p, the overlap test.
func rangeQuery(base string, id generic.EmployeeID, p generic.Period) (string, []any) {
	query := base + ` WHERE employee_id = ?`
	args := []any{id}
	if !p.Start.IsZero() {
		query += ` AND start_date <= ? AND end_date >= ?`
		args = append(args, p.End.String(), p.Start.String())
	}
	return query, args
}

func wrapRangeInsert(err error, what string) error {
	if err == nil {
		return nil
	}
	if isForeignKeyError(err) {
		return generic.ErrEmployeeNotFound
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", what, generic.ErrDuplicateID)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}

// =============================================================================
// COMPENSATION
// =============================================================================

func (s *Store) CreateBonusPlan(ctx context.Context, b generic.BonusPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bonus_plans (id, name, amount, condition, offset_minutes)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Name, b.Amount.String(), b.Condition, b.OffsetMinutes)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("bonus plan %s: %w", b.ID, generic.ErrDuplicateID)
		}
		return fmt.Errorf("failed to create bonus plan: %w", err)
	}
	return nil
}

func (s *Store) UpdateBonusPlan(ctx context.Context, b generic.BonusPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bonus_plans SET name = ?, amount = ?, condition = ?, offset_minutes = ?
		WHERE id = ?
	`, b.Name, b.Amount.String(), b.Condition, b.OffsetMinutes, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update bonus plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrBonusPlanNotFound
	}
	return nil
}

func (s *Store) DeleteBonusPlan(ctx context.Context, id generic.BonusPlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bonus_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bonus plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrBonusPlanNotFound
	}
	return nil
}

func (s *Store) GetBonusPlan(ctx context.Context, id generic.BonusPlanID) (generic.BonusPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := scanBonusPlan(s.db.QueryRowContext(ctx,
		`SELECT id, name, amount, condition, offset_minutes FROM bonus_plans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return generic.BonusPlan{}, generic.ErrBonusPlanNotFound
	}
	return b, err
}

func (s *Store) ListBonusPlans(ctx context.Context) ([]generic.BonusPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, amount, condition, offset_minutes FROM bonus_plans ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus plans: %w", err)
	}
	defer rows.Close()

	var plans []generic.BonusPlan
	for rows.Next() {
		b, err := scanBonusPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, b)
	}
	return plans, rows.Err()
}

func scanBonusPlan(row scanner) (generic.BonusPlan, error) {
	var (
		b      generic.BonusPlan
		amount string
	)
	if err := row.Scan(&b.ID, &b.Name, &amount, &b.Condition, &b.OffsetMinutes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan bonus plan: %w", err)
	}
	var err error
	b.Amount, err = parseStoredDecimal("bonus_plans.amount", amount)
	return b, err
}

func (s *Store) CreateCommission(ctx context.Context, c generic.Commission) error {
	return s.insertAdjustment(ctx, "commissions", c.ID, c.EmployeeID, c.Amount, c.Label, c.ApplyOn, c.CreatedAt)
}

func (s *Store) DeleteCommission(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "commissions", id)
}

func (s *Store) CommissionsInRange(ctx context.Context, p generic.Period) ([]generic.Commission, error) {
	rows, err := s.adjustmentsInRange(ctx, "commissions", p)
	if err != nil {
		return nil, err
	}
	result := make([]generic.Commission, len(rows))
	for i, r := range rows {
		result[i] = generic.Commission(r)
	}
	return result, nil
}

func (s *Store) CreateDeduction(ctx context.Context, d generic.Deduction) error {
	return s.insertAdjustment(ctx, "deductions", d.ID, d.EmployeeID, d.Amount, d.Label, d.ApplyOn, d.CreatedAt)
}

func (s *Store) DeleteDeduction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "deductions", id)
}

func (s *Store) DeductionsInRange(ctx context.Context, p generic.Period) ([]generic.Deduction, error) {
	rows, err := s.adjustmentsInRange(ctx, "deductions", p)
	if err != nil {
		return nil, err
	}
	result := make([]generic.Deduction, len(rows))
	for i, r := range rows {
		result[i] = generic.Deduction(r)
	}
	return result, nil
}

// adjustment mirrors the shared shape of Commission and Deduction.
type adjustment struct {
	ID         string
	EmployeeID generic.EmployeeID
	Amount     decimal.Decimal
	Label      string
	ApplyOn    generic.Date
	CreatedAt  time.Time
}

func (s *Store) insertAdjustment(ctx context.Context, table, id string, emp generic.EmployeeID,
	amount decimal.Decimal, label string, applyOn generic.Date, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (id, employee_id, amount, label, apply_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, emp, amount.String(), label, applyOn.String(), formatInstant(createdAt))
	if err != nil {
		if isForeignKeyError(err) {
			return generic.ErrEmployeeNotFound
		}
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s %s: %w", table, id, generic.ErrDuplicateID)
		}
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) adjustmentsInRange(ctx context.Context, table string, p generic.Period) ([]adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, amount, label, apply_on, created_at
		FROM `+table+`
		WHERE apply_on >= ? AND apply_on <= ?
		ORDER BY apply_on, id
	`, p.Start.String(), p.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var result []adjustment
	for rows.Next() {
		var (
			a                          adjustment
			amount, applyOn, createdAt string
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &amount, &a.Label, &applyOn, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if a.Amount, err = parseStoredDecimal(table+".amount", amount); err != nil {
			return nil, err
		}
		a.ApplyOn, _ = generic.ParseDate(applyOn)
		a.CreatedAt = parseInstant(createdAt)
		result = append(result, a)
	}
	return result, rows.Err()
}

// =============================================================================
// CATALOGUES
// =============================================================================

func (s *Store) CreateCatalogEntry(ctx context.Context, e generic.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_entries (id, kind, name, daily_salary) VALUES (?, ?, ?, ?)`,
		e.ID, e.Kind, e.Name, e.DailySalary.String(),
	)
	return wrapCatalogWrite(err, e)
}

func (s *Store) UpdateCatalogEntry(ctx context.Context, e generic.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_entries SET name = ?, daily_salary = ? WHERE id = ? AND kind = ?`,
		e.Name, e.DailySalary.String(), e.ID, e.Kind,
	)
	if err != nil {
		return wrapCatalogWrite(err, e)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func wrapCatalogWrite(err error, e generic.CatalogEntry) error {
	switch {
	case err == nil:
		return nil
	case strings.Contains(err.Error(), "catalog_entries.name"):
		return fmt.Errorf("%s %q: %w", e.Kind, e.Name, generic.ErrDuplicateName)
	case isUniqueConstraintError(err):
		return fmt.Errorf("catalog entry %s: %w", e.ID, generic.ErrDuplicateID)
	default:
		return fmt.Errorf("failed to write catalog entry: %w", err)
	}
}

func (s *Store) GetCatalogEntry(ctx context.Context, kind generic.CatalogKind, id string) (generic.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanCatalogEntry(s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, daily_salary FROM catalog_entries WHERE id = ? AND kind = ?`, id, kind))
	if errors.Is(err, sql.ErrNoRows) {
		return generic.CatalogEntry{}, generic.ErrNotFound
	}
	return e, err
}

func (s *Store) DeleteCatalogEntry(ctx context.Context, kind generic.CatalogKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ? AND kind = ?`, id, kind)
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func (s *Store) ListCatalog(ctx context.Context, kind generic.CatalogKind) ([]generic.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, daily_salary FROM catalog_entries WHERE kind = ? ORDER BY name, id`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var entries []generic.CatalogEntry
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanCatalogEntry(row scanner) (generic.CatalogEntry, error) {
	var (
		e      generic.CatalogEntry
		salary string
	)
	if err := row.Scan(&e.ID, &e.Kind, &e.Name, &salary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan catalog entry: %w", err)
	}
	var err error
	e.DailySalary, err = parseStoredDecimal("catalog_entries.daily_salary", salary)
	return e, err
}

// =============================================================================
// PAYROLL RUNS (immutable)
// =============================================================================

// SavePayrollRun inserts the header and every line item in one transaction.
func (s *Store) SavePayrollRun(ctx context.Context, run generic.PayrollRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payroll_runs (id, name, period_start, period_end, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, run.Name, run.Period.Start.String(), run.Period.End.String(), formatInstant(run.CreatedAt)); err != nil {
			if isUniqueConstraintError(err) {
				return generic.ErrDuplicateID
			}
			return fmt.Errorf("failed to insert payroll run: %w", err)
		}
		for i, it := range run.Items {
			if err := insertLineItem(ctx, tx, run.ID, i, it); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertLineItem(ctx context.Context, db execer, runID generic.RunID, position int, it generic.LineItem) error {
	absent := make([]string, len(it.AbsentDates))
	for i, d := range it.AbsentDates {
		absent[i] = d.String()
	}
	absentJSON, _ := json.Marshal(absent)

	_, err := db.ExecContext(ctx, `
		INSERT INTO payroll_line_items
		(run_id, position, employee_id, name, title, hire_date, daily_salary, days_worked,
		 base_pay, bonus_total, commission_total, deduction_total, gross_earnings, net_pay,
		 absent_dates_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, position, it.EmployeeID, it.Name, it.Title, nullDate(it.HireDate),
		it.DailySalary.String(), it.DaysWorked,
		it.BasePay.String(), it.BonusTotal.String(), it.CommissionTotal.String(),
		it.DeductionTotal.String(), it.GrossEarnings.String(), it.NetPay.String(),
		string(absentJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert line item for %s: %w", it.EmployeeID, err)
	}
	return nil
}

func (s *Store) GetPayrollRun(ctx context.Context, id generic.RunID) (generic.PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRunHeader(s.db.QueryRowContext(ctx,
		`SELECT id, name, period_start, period_end, created_at FROM payroll_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return generic.PayrollRun{}, generic.ErrRunNotFound
	}
	if err != nil {
		return generic.PayrollRun{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, name, title, hire_date, daily_salary, days_worked, base_pay,
		       bonus_total, commission_total, deduction_total, gross_earnings, net_pay,
		       absent_dates_json
		FROM payroll_line_items
		WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return generic.PayrollRun{}, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                                      generic.LineItem
			hireDate                                sql.NullString
			salary, base, bonus, commission, deduct string
			gross, net, absentJSON                  string
		)
		if err := rows.Scan(&it.EmployeeID, &it.Name, &it.Title, &hireDate, &salary, &it.DaysWorked,
			&base, &bonus, &commission, &deduct, &gross, &net, &absentJSON); err != nil {
			return generic.PayrollRun{}, fmt.Errorf("failed to scan line item: %w", err)
		}
		it.HireDate = parseNullDate(hireDate)
		amounts := []struct {
			dst *decimal.Decimal
			col string
			raw string
		}{
			{&it.DailySalary, "daily_salary", salary},
			{&it.BasePay, "base_pay", base},
			{&it.BonusTotal, "bonus_total", bonus},
			{&it.CommissionTotal, "commission_total", commission},
			{&it.DeductionTotal, "deduction_total", deduct},
			{&it.GrossEarnings, "gross_earnings", gross},
			{&it.NetPay, "net_pay", net},
		}
		for _, a := range amounts {
			if *a.dst, err = parseStoredDecimal("payroll_line_items."+a.col, a.raw); err != nil {
				return generic.PayrollRun{}, err
			}
		}

		var absent []string
		json.Unmarshal([]byte(absentJSON), &absent)
		for _, a := range absent {
			if d, err := generic.ParseDate(a); err == nil {
				it.AbsentDates = append(it.AbsentDates, d)
			}
		}
		run.Items = append(run.Items, it)
	}
	return run, rows.Err()
}

func (s *Store) ListPayrollRuns(ctx context.Context) ([]generic.PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, period_start, period_end, created_at FROM payroll_runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []generic.PayrollRun
	for rows.Next() {
		run, err := scanRunHeader(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRunHeader(row scanner) (generic.PayrollRun, error) {
	var (
		run                   generic.PayrollRun
		start, end, createdAt string
	)
	if err := row.Scan(&run.ID, &run.Name, &start, &end, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan payroll run: %w", err)
	}
	run.Period.Start, _ = generic.ParseDate(start)
	run.Period.End, _ = generic.ParseDate(end)
	run.CreatedAt = parseInstant(createdAt)
	return run, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children before parents so foreign keys hold.
	tables := []string{
		"payroll_line_items", "payroll_runs",
		"attendance_events", "rest_days", "vacations", "permissions",
		"commissions", "deductions", "holidays", "employees", "bonus_plans",
		"catalog_entries",
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// withTx runs fn in a transaction and commits. The whole transaction is
// retried while SQLite reports the database busy or locked.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retry.Do(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	},
		retry.Attempts(txAttempts),
		retry.Delay(txBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isBusyError),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

// Helper functions

func formatInstant(t time.Time) string { return t.UTC().Format(instantLayout) }

func parseInstant(s string) time.Time {
	t, _ := time.Parse(instantLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d generic.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) generic.Date {
	if !ns.Valid {
		return generic.Date{}
	}
	d, _ := generic.ParseDate(ns.String)
	return d
}

func nullClock(c *generic.ClockTime) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseNullClock(ns sql.NullString) *generic.ClockTime {
	if !ns.Valid {
		return nil
	}
	c, err := generic.ParseClockTime(ns.String)
	if err != nil {
		return nil
	}
	return &c
}

func bonusPlanRef(id *generic.BonusPlanID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return nullString(string(*id))
}

// parseStoredDecimal fails loudly on a corrupt amount instead of reading it as zero.
func parseStoredDecimal(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", column, raw, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

func isBusyError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
