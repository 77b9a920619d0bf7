package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

// testDate is a Monday.
const testDate = "2026-10-19"

func testSlot(id, name, start, end string) database.SlotDefinition {
	return database.SlotDefinition{
		SlotID:      id,
		DisplayName: name,
		StartTime:   database.MustParseTimeOfDay(start),
		EndTime:     database.MustParseTimeOfDay(end),
		IsActive:    true,
	}
}

// newTestService wires the attendance components over a mock store holding
// the morning and afternoon slots, two active students (1, 2) and one
// inactive student (3).
func newTestService(t *testing.T) (*attendance.Service, *mock.MockStore) {
	t.Helper()

	store := mock.NewMockStore()
	store.AddSlot(testSlot("morning", "Morning Session", "08:45", "09:30"))
	store.AddSlot(testSlot("afternoon", "Afternoon Session", "13:45", "14:30"))
	store.AddStudent(database.Student{ID: 1, Code: "S001", Name: "Alice Novak"})
	store.AddStudent(database.Student{ID: 2, Code: "S002", Name: "Bob Dvorak"})
	store.AddStudent(database.Student{ID: 3, Code: "S003", Name: "Carol Svoboda", Status: database.StudentStatusInactive})

	catalog := attendance.NewCatalog(store, nil)
	if _, err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	projector := attendance.NewProjector(store, store, store)
	ledger := attendance.NewLedger(catalog, store, store, store, projector, time.UTC)
	workingDays, err := attendance.ParseWorkingDays("mon,tue,wed,thu,fri,sat")
	if err != nil {
		t.Fatalf("failed to parse working days: %v", err)
	}
	query := attendance.NewQueryService(catalog, store, store, projector, workingDays, time.UTC)

	return attendance.NewService(catalog, ledger, projector, query, time.UTC), store
}

// jsonRequest creates a request with a JSON body
func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
// withRole attaches the claims RequireAuth would set for role.
func withRole(r *http.Request, role string) *http.Request {
	claims := &middleware.Claims{Role: role}
	return r.WithContext(middleware.SetClaimsInContext(r.Context(), claims))
}

func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses JSON response body into v
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	contentType := recorder.Header().Get("Content-Type")
	if contentType != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, contentType)
	}
}
