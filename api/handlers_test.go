package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic/store"
	"github.com/warp/timeclock/payroll"
	"github.com/warp/timeclock/recognition"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var cst = time.FixedZone("CST", -6*60*60)

type testServer struct {
	h      *Handler
	router http.Handler
	now    time.Time
}

func newTestServer(t *testing.T, dev bool) *testServer {
	t.Helper()
	cache, err := attendance.NewReportCache(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	ts := &testServer{now: time.Date(2025, time.October, 6, 8, 45, 0, 0, cst)}
	ts.h = NewHandler(store.NewMemory(), cst, Options{
		Matcher: recognition.Static{"QU5B": "emp-ana"},
		Issuer:  payroll.Issuer{Name: "Abarrotes Warp", TaxID: "AWA010101AAA"},
		Cache:   cache,
		Dev:     dev,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return ts.now },
	})
	ts.router = NewRouter(ts.h, []string{"*"})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createAna(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{
		ID:          "emp-ana",
		Name:        "Ana López",
		Title:       "Cajera",
		DailySalary: "261.33",
		HireDate:    "2024-03-01",
		ClockIn:     "09:00",
		ClockOut:    "18:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (ts *testServer) punch(t *testing.T, kind string, day, hour, minute int) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/attendance/events", PunchRequest{
		EmployeeID: "emp-ana",
		Kind:       kind,
		At:         time.Date(2025, time.October, day, hour, minute, 0, 0, cst).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CRUD(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	// Duplicate id
	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{ID: "emp-ana", Name: "Otra", DailySalary: "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Validation
	rec = ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{Name: "Sin salario", DailySalary: "12.345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/employees/emp-ana/rest-days", RestDaysRequest{Weekdays: []int{0, 6}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/employees/emp-ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decodeBody[EmployeeDTO](t, rec)
	assert.Equal(t, "261.33", emp.DailySalary)
	assert.Equal(t, "09:00", emp.ClockIn)
	assert.Equal(t, []int{0, 6}, emp.RestDays)

	rec = ts.do(t, http.MethodPut, "/api/employees/emp-ana/rest-days", RestDaysRequest{Weekdays: []int{1, 1}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployees_DeleteRefusedWithHistory(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)
	ts.punch(t, "CLOCK_IN", 6, 8, 50)

	rec := ts.do(t, http.MethodDelete, "/api/employees/emp-ana", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// CHECK-IN
// =============================================================================

func TestCheckIn_InfersKindAndTagsPunctuality(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	// WHEN the kiosk sends Ana's photo at 08:45
	rec := ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "data:image/jpeg;base64,QU5B"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[EventDTO](t, rec)

	// THEN a punctual clock-in is recorded
	assert.Equal(t, "CLOCK_IN", first.Kind)
	assert.Equal(t, "ON_TIME", first.Punctuality)
	assert.Equal(t, "Ana López", first.EmployeeName)
	assert.Equal(t, "2025-10-06", first.Date)

	// WHEN she checks again in the evening
	ts.now = time.Date(2025, time.October, 6, 18, 3, 0, 0, cst)
	rec = ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "QU5B", IdempotencyKey: "k-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[EventDTO](t, rec)

	// THEN it is a clock-out without punctuality
	assert.Equal(t, "CLOCK_OUT", second.Kind)
	assert.Empty(t, second.Punctuality)

	// AND a retried request with the same key is rejected
	rec = ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "QU5B", IdempotencyKey: "k-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/attendance/events?employee_id=emp-ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody[[]EventDTO](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, "CLOCK_OUT", events[0].Kind, "newest first")
}

func TestCheckIn_Failures(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	rec := ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "WFla"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown face")

	rec = ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.h.Matcher = recognition.Disabled{}
	rec = ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "QU5B"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegisterFace_ThenCheckIn(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	// GIVEN a photo nobody has enrolled
	rec := ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "TlVFVkE="})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// WHEN it is registered for Ana
	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/register-face", FaceRequest{Image: "data:image/jpeg;base64,TlVFVkE="})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	face := decodeBody[FaceDTO](t, rec)
	assert.Equal(t, "emp-ana", face.EmployeeID)
	assert.True(t, face.Registered)

	// THEN the kiosk recognises her
	rec = ts.do(t, http.MethodPost, "/api/attendance/check-in", CheckInRequest{Image: "TlVFVkE="})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "emp-ana", decodeBody[EventDTO](t, rec).EmployeeID)
}

func TestRegisterFace_Failures(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	rec := ts.do(t, http.MethodPost, "/api/employees/ghost/register-face", FaceRequest{Image: "QU5B"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/register-face", FaceRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.h.Matcher = recognition.Disabled{}
	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/register-face", FaceRequest{Image: "QU5B"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAttendanceReport(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)
	ts.punch(t, "CLOCK_IN", 6, 8, 50)
	ts.punch(t, "CLOCK_IN", 7, 9, 5)
	ts.punch(t, "CLOCK_OUT", 7, 18, 0)

	rec := ts.do(t, http.MethodGet, "/api/employees/emp-ana/attendance?from=2025-10-06&to=2025-10-08", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decodeBody[ReportDTO](t, rec)

	require.Len(t, rep.Days, 3)
	assert.Equal(t, DayDTO{Date: "2025-10-06", Status: "WORKED", ClockIn: "08:50", ClockOut: "—"}, rep.Days[0])
	assert.Equal(t, DayDTO{Date: "2025-10-07", Status: "WORKED", ClockIn: "09:05", ClockOut: "18:00"}, rep.Days[1])
	assert.Equal(t, "ABSENT", rep.Days[2].Status)
	assert.Equal(t, 2, rep.Counts["WORKED"])
	assert.Equal(t, 1, rep.Counts["ABSENT"])
	assert.Equal(t, 0, rep.Counts["HOLIDAY"])

	// A holiday added afterwards is visible immediately.
	rec = ts.do(t, http.MethodPost, "/api/holidays", HolidayRequest{Date: "2025-10-08", Name: "Asueto"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/employees/emp-ana/attendance?from=2025-10-06&to=2025-10-08", nil)
	rep = decodeBody[ReportDTO](t, rec)
	assert.Equal(t, DayDTO{Date: "2025-10-08", Status: "HOLIDAY", ClockIn: "—", ClockOut: "—", Label: "Asueto"}, rep.Days[2])
}

func TestAttendanceReport_Rejections(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	rec := ts.do(t, http.MethodGet, "/api/employees/emp-ana/attendance?from=2025-10-08&to=2025-10-06", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/employees/ghost/attendance?from=2025-10-06&to=2025-10-08", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestPayroll_CalculateSaveReceipt(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/bonus-plans", map[string]any{
		"id": "bp-1", "name": "Puntualidad", "amount": "50.00", "condition": "PUNCTUALITY", "offset_minutes": -10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ts.createAna(t)
	plan := "bp-1"
	rec = ts.do(t, http.MethodPut, "/api/employees/emp-ana", EmployeeRequest{
		Name: "Ana López", Title: "Cajera", DailySalary: "261.33", BonusPlanID: &plan,
		HireDate: "2024-03-01", ClockIn: "09:00", ClockOut: "18:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.punch(t, "CLOCK_IN", 6, 8, 45)  // qualifies
	ts.punch(t, "CLOCK_IN", 7, 8, 55)  // on time, no bonus
	ts.punch(t, "CLOCK_IN", 8, 8, 50)  // qualifies, inclusive
	rec = ts.do(t, http.MethodPost, "/api/deductions", AdjustmentRequest{
		EmployeeID: "emp-ana", Amount: "100.00", Label: "PRESTAMO", ApplyOn: "2025-10-08",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN previewing
	rec = ts.do(t, http.MethodPost, "/api/payroll/calculate", PeriodRequest{From: "2025-10-06", To: "2025-10-09"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decodeBody[RunDTO](t, rec)

	// THEN the figures are exact
	require.Len(t, preview.Items, 1)
	it := preview.Items[0]
	assert.Equal(t, 3, it.DaysWorked)
	assert.Equal(t, "783.99", it.BasePay)
	assert.Equal(t, "100.00", it.BonusTotal)
	assert.Equal(t, "883.99", it.GrossEarnings)
	assert.Equal(t, "783.99", it.NetPay)
	assert.Equal(t, []string{"2025-10-09"}, it.AbsentDates)
	assert.Empty(t, preview.ID, "preview is not saved")

	// WHEN saving
	rec = ts.do(t, http.MethodPost, "/api/payroll/runs", SaveRunRequest{From: "2025-10-06", To: "2025-10-09"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decodeBody[RunDTO](t, rec)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "Nómina 2025-10-06 al 2025-10-09", run.Name)

	// AND the salary changes later
	rec = ts.do(t, http.MethodPut, "/api/employees/emp-ana", EmployeeRequest{
		Name: "Ana López", Title: "Cajera", DailySalary: "400.00", ClockIn: "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the saved run is unchanged
	rec = ts.do(t, http.MethodGet, "/api/payroll/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeBody[RunDTO](t, rec)
	assert.Equal(t, "783.99", saved.Items[0].NetPay)
	assert.Equal(t, "261.33", saved.Items[0].DailySalary)

	rec = ts.do(t, http.MethodGet, "/api/payroll/runs/"+run.ID+"/receipts/emp-ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	receipt := rec.Body.String()
	assert.Contains(t, receipt, "ABARROTES WARP")
	assert.Contains(t, receipt, "DEL 2025-10-06 AL 2025-10-09")
	assert.Contains(t, receipt, "2025-10-09")
	assert.Contains(t, receipt, "$783.99")

	rec = ts.do(t, http.MethodGet, "/api/payroll/runs/"+run.ID+"/receipts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/payroll/runs", nil)
	runs := decodeBody[[]RunDTO](t, rec)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].Items, "headers only")
}

func TestPayroll_InvalidPeriod(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/payroll/calculate", PeriodRequest{From: "2025-10-09", To: "2025-10-06"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/payroll/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_DevOnly(t *testing.T) {
	rec := newTestServer(t, false).do(t, http.MethodGet, "/api/scenarios", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts := newTestServer(t, true)
	rec = ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]ScenarioDTO](t, rec))

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "quincena"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/employees", nil)
	assert.Len(t, decodeBody[[]EmployeeDTO](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "quincena", decodeBody[ScenarioDTO](t, rec).ID)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// LIVE FEED
// =============================================================================

func TestFeed_BroadcastsEvents(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/feed", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.h.Feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ts.punch(t, "CLOCK_IN", 6, 8, 59)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev EventDTO
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "emp-ana", ev.EmployeeID)
	assert.Equal(t, "CLOCK_IN", ev.Kind)
	assert.Equal(t, "ON_TIME", ev.Punctuality)
}
