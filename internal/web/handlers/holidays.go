package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// HolidaysHandler handles holiday calendar endpoints
type HolidaysHandler struct {
	holidays database.HolidayStore
}

// NewHolidaysHandler creates a new holidays handler
func NewHolidaysHandler(holidays database.HolidayStore) *HolidaysHandler {
	return &HolidaysHandler{holidays: holidays}
}

type addHolidayRequest struct {
	Date string `json:"date" validate:"required"`
	Name string `json:"name" validate:"required,max=200"`
	Type string `json:"type" validate:"omitempty,oneof=holiday vacation exam event"`
}

// List returns holidays in the optional ?from= and ?to= range
func (h *HolidaysHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(database.DateLayout, d); err != nil {
			respondError(w, http.StatusUnprocessableEntity, "dates must be YYYY-MM-DD")
			return
		}
	}

	holidays, err := h.holidays.ListHolidays(r.Context(), from, to)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if holidays == nil {
		holidays = []database.Holiday{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "ok",
		"holidays": holidays,
	})
}

// Add stores a holiday
func (h *HolidaysHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addHolidayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := time.Parse(database.DateLayout, req.Date); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}
	if req.Type == "" {
		req.Type = "holiday"
	}

	holiday := &database.Holiday{Date: req.Date, Name: req.Name, Type: req.Type}
	err := h.holidays.AddHoliday(r.Context(), holiday)
	if errors.Is(err, database.ErrConflict) {
		respondError(w, http.StatusConflict, "a holiday already exists on "+req.Date)
		return
	}
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "holiday added",
		"holiday": holiday,
	})
}

// Delete removes a holiday
func (h *HolidaysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.holidays.DeleteHoliday(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "holiday not found")
		return
	}
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "holiday deleted"})
}
