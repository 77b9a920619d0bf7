package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
)

// SlotsHandler handles slot catalog endpoints
type SlotsHandler struct {
	service *attendance.Service
}

// NewSlotsHandler creates a new slots handler
func NewSlotsHandler(service *attendance.Service) *SlotsHandler {
	return &SlotsHandler{service: service}
}

type createSlotRequest struct {
	SlotID      string `json:"slot_id" validate:"required,max=50"`
	DisplayName string `json:"display_name" validate:"max=100"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

type updateSlotRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// parseWindow parses a start/end pair of HH:MM times.
func parseWindow(start, end string) (database.TimeOfDay, database.TimeOfDay, error) {
	s, err := database.ParseTimeOfDay(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := database.ParseTimeOfDay(end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}

func (h *SlotsHandler) respond(w http.ResponseWriter, r *http.Request, result *attendance.CatalogResult, err error) {
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if result.Success {
		log.Printf("Slots: %s", sanitizeForLog(result.Message))
	}
	respondJSON(w, statusCode(result.Status), result)
}

// List returns the catalog with the current and next slot
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Slots())
}

// Create adds a slot
func (h *SlotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.CreateSlot(r.Context(), database.SlotDefinition{
		SlotID:      req.SlotID,
		DisplayName: req.DisplayName,
		StartTime:   start,
		EndTime:     end,
		IsActive:    true,
	})
	h.respond(w, r, result, err)
}

// Update changes a slot window
func (h *SlotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UpdateSlot(r.Context(), chi.URLParam(r, "slotID"), start, end)
	h.respond(w, r, result, err)
}

// Deactivate removes a slot from the catalog; its marks are kept
func (h *SlotsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeactivateSlot(r.Context(), chi.URLParam(r, "slotID"))
	h.respond(w, r, result, err)
}

// Activate returns a deactivated slot to the catalog
func (h *SlotsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ActivateSlot(r.Context(), chi.URLParam(r, "slotID"))
	h.respond(w, r, result, err)
}

// Reload re-reads the catalog from the store
func (h *SlotsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ReloadSlots(r.Context())
	h.respond(w, r, result, err)
}
