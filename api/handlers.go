/*
handlers.go - HTTP API handlers for the time-clock engine

PURPOSE:
  Exposes attendance reconciliation and payroll via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees (employees.go):
    GET    /api/employees                       List (?branch=)
    POST   /api/employees                       Create
    GET    /api/employees/{id}                  Get
    PUT    /api/employees/{id}                  Replace
    DELETE /api/employees/{id}                  Delete (409 with history)
    GET    /api/employees/{id}/rest-days        Weekday set
    PUT    /api/employees/{id}/rest-days        Replace weekday set
    GET    /api/employees/{id}/attendance       Day-status report (?from&to)
    POST   /api/employees/{id}/register-face    Enrol a face with the matcher

  Catalogues (catalog.go):
    GET/POST  /api/titles, PUT/DELETE /api/titles/{id}
    GET/POST  /api/branches, PUT/DELETE /api/branches/{id}
    GET/POST  /api/permission-reasons, PUT/DELETE /api/permission-reasons/{id}

  Calendar (calendar.go):
    GET/POST        /api/holidays, DELETE /api/holidays/{id}
    GET/POST        /api/employees/{id}/vacations, DELETE /api/vacations/{id}
    GET/POST        /api/employees/{id}/permissions, DELETE /api/permissions/{id}

  Compensation (compensation.go):
    GET/POST        /api/bonus-plans, GET/PUT/DELETE /api/bonus-plans/{id}
    GET/POST        /api/commissions, DELETE /api/commissions/{id}
    GET/POST        /api/deductions, DELETE /api/deductions/{id}

  Attendance (attendance.go):
    POST   /api/attendance/check-in             Kiosk photo -> event
    POST   /api/attendance/events               Manual punch
    GET    /api/attendance/events               Event log, newest first
    GET    /api/feed                            Websocket live feed

  Payroll (payroll.go):
    POST   /api/payroll/calculate               Preview
    POST   /api/payroll/runs                    Save immutable run
    GET    /api/payroll/runs                    List runs
    GET    /api/payroll/runs/{id}               Full run
    GET    /api/payroll/runs/{id}/receipts/{employee_id}  Plain-text receipt

  Scenarios (scenarios.go, dev mode only):
    GET    /api/scenarios, POST /api/scenarios/load

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid period
  - 404: Resource not found, face not recognised
  - 409: Conflict (idempotency, duplicate id or name, referenced)
  - 502: Face-matching service failure
  - 500: Internal errors (logged with the request id)

CACHE:
  Every write that changes classification inputs invalidates the report
  cache: per employee for events, rest days, vacations and permissions
  (deletes look the range up first to find its employee);
  globally for holidays and scenario loads.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/log"
	"github.com/warp/timeclock/payroll"
	"github.com/warp/timeclock/recognition"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler. Zero values are usable.
type Options struct {
	Matcher        recognition.Matcher
	Issuer         payroll.Issuer
	Cache          *attendance.ReportCache
	MaxRangeDays   int
	Dev            bool
	AllowedOrigins []string
	Logger         *slog.Logger

	// Now overrides the clock used for kiosk punches.
	Now func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    generic.Store
	Reporter *attendance.Reporter
	Ledger   *attendance.EventLedger
	Payroll  *payroll.Engine
	Matcher  recognition.Matcher
	Bonus    *factory.BonusFactory
	Feed     *Feed

	loc    *time.Location
	issuer payroll.Issuer
	dev    bool
	logger *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the domain services over store. loc is the
// organisation's wall clock.
func NewHandler(store generic.Store, loc *time.Location, opts Options) *Handler {
	var ropts []attendance.ReporterOption
	if opts.Cache != nil {
		ropts = append(ropts, attendance.WithCache(opts.Cache))
	}
	if opts.MaxRangeDays > 0 {
		ropts = append(ropts, attendance.WithMaxDays(opts.MaxRangeDays))
	}
	reporter := attendance.NewReporter(store, loc, ropts...)

	ledger := attendance.NewEventLedger(store, loc, opts.Cache)
	if opts.Now != nil {
		ledger = ledger.WithClock(opts.Now)
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = recognition.Disabled{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New("api")
	}

	return &Handler{
		Store:    store,
		Reporter: reporter,
		Ledger:   ledger,
		Payroll:  payroll.NewEngine(store, reporter),
		Matcher:  matcher,
		Bonus:    factory.NewBonusFactory(),
		Feed:     NewFeed(logger, opts.AllowedOrigins),
		loc:      loc,
		issuer:   opts.Issuer,
		dev:      opts.Dev,
		logger:   logger,
	}
}

func (h *Handler) cache() *attendance.ReportCache { return h.Reporter.Cache() }

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status and writes it. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"err", err,
		)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, recognition.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, recognition.ErrUnavailable):
		return http.StatusBadGateway
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. Malformed bodies are validation errors.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &generic.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// periodQuery reads ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func periodQuery(r *http.Request) (generic.Period, error) {
	q := r.URL.Query()
	return generic.NewPeriod(q.Get("from"), q.Get("to"))
}

// optionalPeriodQuery is periodQuery that accepts neither bound being set.
func optionalPeriodQuery(r *http.Request) (generic.Period, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		return generic.Period{}, nil
	}
	return periodQuery(r)
}
