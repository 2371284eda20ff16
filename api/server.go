/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. RealIP:     Kiosks sit behind the branch router
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Admin panel and kiosk run on their own origins

ROUTE GROUPS:
  /api/employees/*      Employees, rest days, ranges, attendance report
  /api/holidays/*       Organisation calendar
  /api/titles/*         Job title catalogue
  /api/branches/*       Branch catalogue
  /api/permission-reasons/*  Permission reason codes
  /api/bonus-plans/*    Bonus plan definitions
  /api/commissions/*    One-off commissions
  /api/deductions/*     One-off deductions
  /api/attendance/*     Kiosk check-in and event log
  /api/payroll/*        Preview, saved runs, receipts
  /api/feed             Websocket live feed
  /api/scenarios/*      Demo scenarios (dev mode only)
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/timeclock/server.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/timeclock/generic"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/rest-days", h.GetRestDays)
			r.Put("/{id}/rest-days", h.SetRestDays)
			r.Get("/{id}/vacations", h.ListVacations)
			r.Post("/{id}/vacations", h.CreateVacation)
			r.Get("/{id}/permissions", h.ListPermissions)
			r.Post("/{id}/permissions", h.CreatePermission)
			r.Get("/{id}/attendance", h.GetAttendanceReport)
			r.Post("/{id}/register-face", h.RegisterFace)
		})

		// Calendar routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
		r.Delete("/vacations/{id}", h.DeleteVacation)
		r.Delete("/permissions/{id}", h.DeletePermission)

		// Catalogue routes
		r.Route("/titles", h.catalogRoutes(generic.CatalogTitles))
		r.Route("/branches", h.catalogRoutes(generic.CatalogBranches))
		r.Route("/permission-reasons", h.catalogRoutes(generic.CatalogPermissionReasons))

		// Compensation routes
		r.Route("/bonus-plans", func(r chi.Router) {
			r.Get("/", h.ListBonusPlans)
			r.Post("/", h.CreateBonusPlan)
			r.Get("/{id}", h.GetBonusPlan)
			r.Put("/{id}", h.UpdateBonusPlan)
			r.Delete("/{id}", h.DeleteBonusPlan)
		})
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.ListCommissions)
			r.Post("/", h.CreateCommission)
			r.Delete("/{id}", h.DeleteCommission)
		})
		r.Route("/deductions", func(r chi.Router) {
			r.Get("/", h.ListDeductions)
			r.Post("/", h.CreateDeduction)
			r.Delete("/{id}", h.DeleteDeduction)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/check-in", h.CheckIn)
			r.Post("/events", h.RecordEvent)
			r.Get("/events", h.ListEvents)
		})
		r.Handle("/feed", h.Feed)

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/calculate", h.CalculatePayroll)
			r.Get("/runs", h.ListPayrollRuns)
			r.Post("/runs", h.SavePayrollRun)
			r.Get("/runs/{id}", h.GetPayrollRun)
			r.Get("/runs/{id}/receipts/{employee_id}", h.GetReceipt)
		})

		// Scenario routes
		if h.dev {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	return r
}
