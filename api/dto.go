/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  - Money is a string with exactly two decimals ("1567.98")
  - Dates are YYYY-MM-DD, wall-clock times HH:MM
  - Instants are RFC 3339 in the organisation's zone

SEE ALSO:
  - handlers.go: conversion helpers
  - factory/bonus.go: BonusPlanJSON
*/
package api

import (
	"time"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Branch      string  `json:"branch,omitempty"`
	Title       string  `json:"title,omitempty"`
	DailySalary string  `json:"daily_salary"`
	BonusPlanID *string `json:"bonus_plan_id"`
	HireDate    string  `json:"hire_date,omitempty"`
	ClockIn     string  `json:"clock_in,omitempty"`
	ClockOut    string  `json:"clock_out,omitempty"`
	RestDays    []int   `json:"rest_days"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// EmployeeRequest creates or replaces an employee.
type EmployeeRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Branch      string  `json:"branch"`
	Title       string  `json:"title"`
	DailySalary string  `json:"daily_salary"`
	BonusPlanID *string `json:"bonus_plan_id"`
	HireDate    string  `json:"hire_date"`
	ClockIn     string  `json:"clock_in"`
	ClockOut    string  `json:"clock_out"`
}

type RestDaysRequest struct {
	Weekdays []int `json:"weekdays"`
}

// FaceRequest enrols a face for an employee.
type FaceRequest struct {
	Image string `json:"image"`
}

type FaceDTO struct {
	EmployeeID string `json:"employee_id"`
	Registered bool   `json:"registered"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type HolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// RangeDTO is a vacation or permission.
type RangeDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type RangeRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// =============================================================================
// CATALOGUES
// =============================================================================

type CatalogEntryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DailySalary string `json:"daily_salary,omitempty"`
}

type CatalogEntryRequest struct {
	Name        string `json:"name"`
	DailySalary string `json:"daily_salary"`
}

// =============================================================================
// COMPENSATION
// =============================================================================

type BonusPlanDTO = factory.BonusPlanJSON

// AdjustmentDTO is a commission or deduction.
type AdjustmentDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Amount     string `json:"amount"`
	Label      string `json:"label"`
	ApplyOn    string `json:"apply_on"`
}

type AdjustmentRequest struct {
	EmployeeID string `json:"employee_id"`
	Amount     string `json:"amount"`
	Label      string `json:"label"`
	ApplyOn    string `json:"apply_on"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type EventDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
	Kind         string `json:"kind"`
	At           string `json:"at"`
	Date         string `json:"date"`
	Punctuality  string `json:"punctuality,omitempty"`
	Source       string `json:"source,omitempty"`
}

// CheckInRequest is sent by the kiosk.
type CheckInRequest struct {
	Image          string `json:"image"`
	Kind           string `json:"kind"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PunchRequest is a manual entry by an administrator.
type PunchRequest struct {
	EmployeeID     string `json:"employee_id"`
	Kind           string `json:"kind"`
	At             string `json:"at"`
	IdempotencyKey string `json:"idempotency_key"`
}

type DayDTO struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	ClockIn  string `json:"clock_in"`
	ClockOut string `json:"clock_out"`
	Label    string `json:"label,omitempty"`
}

type ReportDTO struct {
	EmployeeID   string         `json:"employee_id"`
	EmployeeName string         `json:"employee_name"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Days         []DayDTO       `json:"days"`
	Counts       map[string]int `json:"counts"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type PeriodRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type SaveRunRequest struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

type LineItemDTO struct {
	EmployeeID      string   `json:"employee_id"`
	Name            string   `json:"name"`
	Title           string   `json:"title,omitempty"`
	HireDate        string   `json:"hire_date,omitempty"`
	DailySalary     string   `json:"daily_salary"`
	DaysWorked      int      `json:"days_worked"`
	BasePay         string   `json:"base_pay"`
	BonusTotal      string   `json:"bonus_total"`
	CommissionTotal string   `json:"commission_total"`
	DeductionTotal  string   `json:"deduction_total"`
	GrossEarnings   string   `json:"gross_earnings"`
	NetPay          string   `json:"net_pay"`
	AbsentDates     []string `json:"absent_dates"`
}

type TotalsDTO struct {
	Gross      string `json:"gross"`
	Deductions string `json:"deductions"`
	Net        string `json:"net"`
}

type RunDTO struct {
	ID        string        `json:"id,omitempty"`
	Name      string        `json:"name,omitempty"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	CreatedAt string        `json:"created_at,omitempty"`
	Items     []LineItemDTO `json:"items,omitempty"`
	Totals    *TotalsDTO    `json:"totals,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

const missingTime = "—"

func toEmployeeDTO(e generic.Employee, restDays []time.Weekday) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		Branch:      e.Branch,
		Title:       e.Title,
		DailySalary: generic.FormatMoney(e.DailySalary),
		RestDays:    make([]int, len(restDays)),
	}
	if e.BonusPlanID != nil {
		id := string(*e.BonusPlanID)
		dto.BonusPlanID = &id
	}
	if !e.HireDate.IsZero() {
		dto.HireDate = e.HireDate.String()
	}
	if e.ClockIn != nil {
		dto.ClockIn = e.ClockIn.String()
	}
	if e.ClockOut != nil {
		dto.ClockOut = e.ClockOut.String()
	}
	for i, d := range restDays {
		dto.RestDays[i] = int(d)
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toEventDTO(ev generic.AttendanceEvent, name string, loc *time.Location) EventDTO {
	return EventDTO{
		ID:           string(ev.ID),
		EmployeeID:   string(ev.EmployeeID),
		EmployeeName: name,
		Kind:         string(ev.Kind),
		At:           ev.At.In(loc).Format(time.RFC3339),
		Date:         generic.DateOf(ev.At, loc).String(),
		Punctuality:  string(ev.Punctuality),
		Source:       ev.Source,
	}
}

func toReportDTO(rep attendance.Report, loc *time.Location) ReportDTO {
	dto := ReportDTO{
		EmployeeID:   string(rep.Employee.ID),
		EmployeeName: rep.Employee.Name,
		From:         rep.Period.Start.String(),
		To:           rep.Period.End.String(),
		Days:         make([]DayDTO, len(rep.Days)),
		Counts:       make(map[string]int, len(rep.Counts)),
	}
	for i, d := range rep.Days {
		dto.Days[i] = DayDTO{
			Date:     d.Date.String(),
			Status:   string(d.Status),
			ClockIn:  clock(d.ClockIn, loc),
			ClockOut: clock(d.ClockOut, loc),
			Label:    d.Label,
		}
	}
	for s, n := range rep.Counts {
		dto.Counts[string(s)] = n
	}
	return dto
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return missingTime
	}
	return t.In(loc).Format("15:04")
}

func toLineItemDTO(it generic.LineItem) LineItemDTO {
	dto := LineItemDTO{
		EmployeeID:      string(it.EmployeeID),
		Name:            it.Name,
		Title:           it.Title,
		DailySalary:     generic.FormatMoney(it.DailySalary),
		DaysWorked:      it.DaysWorked,
		BasePay:         generic.FormatMoney(it.BasePay),
		BonusTotal:      generic.FormatMoney(it.BonusTotal),
		CommissionTotal: generic.FormatMoney(it.CommissionTotal),
		DeductionTotal:  generic.FormatMoney(it.DeductionTotal),
		GrossEarnings:   generic.FormatMoney(it.GrossEarnings),
		NetPay:          generic.FormatMoney(it.NetPay),
		AbsentDates:     make([]string, len(it.AbsentDates)),
	}
	if !it.HireDate.IsZero() {
		dto.HireDate = it.HireDate.String()
	}
	for i, d := range it.AbsentDates {
		dto.AbsentDates[i] = d.String()
	}
	return dto
}

func toRunDTO(run generic.PayrollRun, withItems bool) RunDTO {
	dto := RunDTO{
		ID:   string(run.ID),
		Name: run.Name,
		From: run.Period.Start.String(),
		To:   run.Period.End.String(),
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.Format(time.RFC3339)
	}
	if withItems {
		dto.Items = make([]LineItemDTO, len(run.Items))
		for i, it := range run.Items {
			dto.Items[i] = toLineItemDTO(it)
		}
		gross, deductions, net := run.Totals()
		dto.Totals = &TotalsDTO{
			Gross:      generic.FormatMoney(gross),
			Deductions: generic.FormatMoney(deductions),
			Net:        generic.FormatMoney(net),
		}
	}
	return dto
}

func toAdjustmentDTO(id string, emp generic.EmployeeID, amount string, label string, applyOn generic.Date) AdjustmentDTO {
	return AdjustmentDTO{
		ID:         id,
		EmployeeID: string(emp),
		Amount:     amount,
		Label:      label,
		ApplyOn:    applyOn.String(),
	}
}
