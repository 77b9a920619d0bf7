package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance/internal/attendance"
)

func TestSlotsHandler_List(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewSlotsHandler(service)
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/slots", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result attendance.CatalogResult
	parseJSONResponse(t, recorder, &result)
	if !result.Success {
		t.Error("expected success")
	}
	if len(result.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(result.Slots))
	}
	if result.Slots[0].SlotID != "morning" || result.Slots[1].SlotID != "afternoon" {
		t.Errorf("expected slots ordered by start time, got %s, %s", result.Slots[0].SlotID, result.Slots[1].SlotID)
	}
}

func TestSlotsHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedCode   int
		expectedStatus string
	}{
		{"valid", `{"slot_id": "evening", "start_time": "17:00", "end_time": "17:45"}`, http.StatusOK, attendance.StatusOK},
		{"overlap", `{"slot_id": "brunch", "start_time": "09:00", "end_time": "10:00"}`, http.StatusUnprocessableEntity, attendance.StatusOverlap},
		{"inverted range", `{"slot_id": "late", "start_time": "18:00", "end_time": "17:00"}`, http.StatusUnprocessableEntity, attendance.StatusInvalidRange},
		{"duplicate id", `{"slot_id": "morning", "start_time": "06:00", "end_time": "06:30"}`, http.StatusConflict, attendance.StatusDuplicateSlot},
		{"bad time", `{"slot_id": "late", "start_time": "25:00", "end_time": "26:00"}`, http.StatusBadRequest, "error"},
		{"missing id", `{"start_time": "17:00", "end_time": "17:45"}`, http.StatusBadRequest, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)
			handler := NewSlotsHandler(service)
			recorder := httptest.NewRecorder()

			handler.Create(recorder, jsonRequest("POST", "/api/v1/slots", tt.body))

			assertStatusCode(t, recorder, tt.expectedCode)
			var result attendance.CatalogResult
			parseJSONResponse(t, recorder, &result)
			if result.Status != tt.expectedStatus {
				t.Errorf("expected status %q, got %q (%s)", tt.expectedStatus, result.Status, result.Message)
			}
		})
	}
}

func TestSlotsHandler_Create_DefaultDisplayName(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewSlotsHandler(service)
	recorder := httptest.NewRecorder()

	handler.Create(recorder, jsonRequest("POST", "/api/v1/slots", `{"slot_id": "evening", "start_time": "17:00", "end_time": "17:45"}`))

	assertStatusCode(t, recorder, http.StatusOK)
	slot, ok := service.Catalog.Snapshot().Lookup("evening")
	if !ok {
		t.Fatal("expected evening slot in the catalog")
	}
	if slot.DisplayName != "Evening Session" {
		t.Errorf("expected 'Evening Session', got %q", slot.DisplayName)
	}
}

func TestSlotsHandler_Update(t *testing.T) {
	tests := []struct {
		name           string
		slotID         string
		body           string
		expectedCode   int
		expectedStatus string
	}{
		{"valid", "morning", `{"start_time": "08:30", "end_time": "09:15"}`, http.StatusOK, attendance.StatusOK},
		{"unknown slot", "night", `{"start_time": "22:00", "end_time": "23:00"}`, http.StatusNotFound, attendance.StatusUnknownSlot},
		{"overlap", "morning", `{"start_time": "08:30", "end_time": "14:00"}`, http.StatusUnprocessableEntity, attendance.StatusOverlap},
		{"empty window", "morning", `{"start_time": "09:00", "end_time": "09:00"}`, http.StatusUnprocessableEntity, attendance.StatusInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)
			handler := NewSlotsHandler(service)
			req := requestWithChiParams(jsonRequest("PUT", "/api/v1/slots/"+tt.slotID, tt.body),
				map[string]string{"slotID": tt.slotID})
			recorder := httptest.NewRecorder()

			handler.Update(recorder, req)

			assertStatusCode(t, recorder, tt.expectedCode)
			var result attendance.CatalogResult
			parseJSONResponse(t, recorder, &result)
			if result.Status != tt.expectedStatus {
				t.Errorf("expected status %q, got %q (%s)", tt.expectedStatus, result.Status, result.Message)
			}
		})
	}
}

func TestSlotsHandler_DeactivateAndActivate(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewSlotsHandler(service)
	params := map[string]string{"slotID": "afternoon"}

	recorder := httptest.NewRecorder()
	handler.Deactivate(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/slots/afternoon", nil), params))
	assertStatusCode(t, recorder, http.StatusOK)
	if _, ok := service.Catalog.Snapshot().Lookup("afternoon"); ok {
		t.Fatal("expected afternoon to leave the catalog")
	}

	recorder = httptest.NewRecorder()
	handler.Activate(recorder, requestWithChiParams(httptest.NewRequest("POST", "/api/v1/slots/afternoon/activate", nil), params))
	assertStatusCode(t, recorder, http.StatusOK)
	if _, ok := service.Catalog.Snapshot().Lookup("afternoon"); !ok {
		t.Fatal("expected afternoon back in the catalog")
	}

	recorder = httptest.NewRecorder()
	handler.Deactivate(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/slots/night", nil),
		map[string]string{"slotID": "night"}))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestSlotsHandler_Reload_StoreFailure(t *testing.T) {
	service, store := newTestService(t)
	store.ListSlotsError = errors.New("connection reset")
	handler := NewSlotsHandler(service)
	recorder := httptest.NewRecorder()

	handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/slots/reload", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	var result attendance.CatalogResult
	parseJSONResponse(t, recorder, &result)
	if result.Status != attendance.StatusConfigError {
		t.Errorf("expected config_error, got %q", result.Status)
	}
	if len(result.Slots) != 2 {
		t.Errorf("expected the previous catalog to be kept, got %d slots", len(result.Slots))
	}
}
