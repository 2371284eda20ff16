package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/generic"
)

func TestCatalog_TitlesCRUD(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/titles", CatalogEntryRequest{Name: " Cajera ", DailySalary: "261.33"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cashier := decodeBody[CatalogEntryDTO](t, rec)
	assert.Equal(t, "Cajera", cashier.Name)
	assert.Equal(t, "261.33", cashier.DailySalary)

	// Duplicate name
	rec = ts.do(t, http.MethodPost, "/api/titles", CatalogEntryRequest{Name: "Cajera"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Validation
	rec = ts.do(t, http.MethodPost, "/api/titles", CatalogEntryRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/titles", CatalogEntryRequest{Name: "Gerente", DailySalary: "1.234"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/titles/"+cashier.ID, CatalogEntryRequest{Name: "Cajera senior", DailySalary: "300.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/titles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	titles := decodeBody[[]CatalogEntryDTO](t, rec)
	require.Len(t, titles, 1)
	assert.Equal(t, "Cajera senior", titles[0].Name)
	assert.Equal(t, "300.00", titles[0].DailySalary)

	rec = ts.do(t, http.MethodDelete, "/api/titles/"+cashier.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/titles/"+cashier.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog_KindsAreSeparate(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/branches", CatalogEntryRequest{Name: "Centro"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	branch := decodeBody[CatalogEntryDTO](t, rec)
	assert.Empty(t, branch.DailySalary)

	// Branches carry no salary
	rec = ts.do(t, http.MethodPost, "/api/branches", CatalogEntryRequest{Name: "Norte", DailySalary: "1.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The branch id is unknown to the titles catalogue
	rec = ts.do(t, http.MethodDelete, "/api/titles/"+branch.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/permission-reasons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]CatalogEntryDTO](t, rec))
}

func TestPermission_ReasonMustBeCatalogued(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)

	// GIVEN a single reason code
	rec := ts.do(t, http.MethodPost, "/api/permission-reasons", CatalogEntryRequest{Name: "MEDICO"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN a permission names an unknown code THEN it is rejected
	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/permissions",
		RangeRequest{From: "2025-10-08", To: "2025-10-08", Reason: "VIAJE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// AND a catalogued code or no reason at all is accepted
	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/permissions",
		RangeRequest{From: "2025-10-08", To: "2025-10-08", Reason: " MEDICO "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "MEDICO", decodeBody[RangeDTO](t, rec).Reason)

	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/permissions",
		RangeRequest{From: "2025-10-09", To: "2025-10-09"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRangeDelete_InvalidatesOnlyItsEmployee(t *testing.T) {
	ts := newTestServer(t, false)
	ts.createAna(t)
	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{ID: "emp-luis", Name: "Luis", DailySalary: "300.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/vacations", RangeRequest{From: "2025-10-08", To: "2025-10-09"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	vacation := decodeBody[RangeDTO](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/employees/emp-ana/permissions", RangeRequest{From: "2025-10-10", To: "2025-10-10"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	permission := decodeBody[RangeDTO](t, rec)

	p, err := generic.NewPeriod("2025-10-06", "2025-10-12")
	require.NoError(t, err)
	anaKey, luisKey := ts.h.cache().Key("emp-ana", p), ts.h.cache().Key("emp-luis", p)

	// WHEN Ana's vacation is deleted
	rec = ts.do(t, http.MethodDelete, "/api/vacations/"+vacation.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN only Ana's cached reports are dropped
	assert.NotEqual(t, anaKey, ts.h.cache().Key("emp-ana", p))
	assert.Equal(t, luisKey, ts.h.cache().Key("emp-luis", p))

	anaKey = ts.h.cache().Key("emp-ana", p)
	rec = ts.do(t, http.MethodDelete, "/api/permissions/"+permission.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEqual(t, anaKey, ts.h.cache().Key("emp-ana", p))
	assert.Equal(t, luisKey, ts.h.cache().Key("emp-luis", p))

	// AND an unknown id is a 404
	rec = ts.do(t, http.MethodDelete, "/api/vacations/"+vacation.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
