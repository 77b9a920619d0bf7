package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database/mock"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, map[string]string{"status": "ok"})
	assertContentType(t, recorder, "application/json")
}

func TestRespondJSON_SetsStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"BadRequest", http.StatusBadRequest},
		{"NotFound", http.StatusNotFound},
		{"ServiceUnavailable", http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, nil)
			assertStatusCode(t, recorder, tc.statusCode)
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_Envelope(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	var result attendance.Result
	parseJSONResponse(t, recorder, &result)

	if result.Success {
		t.Error("expected success false")
	}
	if result.Status != "error" {
		t.Errorf("expected status 'error', got '%s'", result.Status)
	}
	if result.Message != "something went wrong" {
		t.Errorf("expected message 'something went wrong', got '%s'", result.Message)
	}
}

func TestRespondStoreError_HidesDetails(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/slots", nil)
	recorder := httptest.NewRecorder()

	respondStoreError(recorder, req, errors.New("pq: password authentication failed"))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	var result attendance.Result
	parseJSONResponse(t, recorder, &result)
	if result.Message != "attendance store unavailable" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		status   string
		expected int
	}{
		{attendance.StatusMarked, http.StatusOK},
		{attendance.StatusAlreadyMarked, http.StatusOK},
		{attendance.StatusOK, http.StatusOK},
		{attendance.StatusOutsideSlot, http.StatusUnprocessableEntity},
		{attendance.StatusInvalidRange, http.StatusUnprocessableEntity},
		{attendance.StatusInvalidDate, http.StatusUnprocessableEntity},
		{attendance.StatusOverlap, http.StatusUnprocessableEntity},
		{attendance.StatusHoliday, http.StatusUnprocessableEntity},
		{attendance.StatusUnknownSlot, http.StatusNotFound},
		{attendance.StatusStudentNotFound, http.StatusNotFound},
		{attendance.StatusDuplicateSlot, http.StatusConflict},
		{attendance.StatusConfigError, http.StatusServiceUnavailable},
		{"something_else", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := statusCode(tt.status); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDecodeJSON_ValidationMessages(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"malformed", `{"student_id":`, errInvalidRequestBody},
		{"missing student", `{"date": "2026-10-19", "slot_id": "morning"}`, "studentid is required"},
		{"missing all", `{}`, "studentid is required; date is required; slotid is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req manualMarkRequest
			err := decodeJSON(jsonRequest("POST", "/", tt.body), &req)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestInt64Param(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"id": tt.value})
			got, err := int64Param(req, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		handler := NewHealthHandler(mock.NewMockStore())
		recorder := httptest.NewRecorder()

		handler.Check(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		assertContentType(t, recorder, "application/json")
		var result map[string]any
		parseJSONResponse(t, recorder, &result)
		if result["status"] != "ok" {
			t.Errorf("expected status 'ok', got '%v'", result["status"])
		}
	})

	t.Run("store down", func(t *testing.T) {
		store := mock.NewMockStore()
		store.PingError = errors.New("connection refused")
		handler := NewHealthHandler(store)
		recorder := httptest.NewRecorder()

		handler.Check(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

		assertStatusCode(t, recorder, http.StatusServiceUnavailable)
		var result map[string]any
		if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if result["database"] != "unavailable" {
			t.Errorf("expected database 'unavailable', got '%v'", result["database"])
		}
	})
}
