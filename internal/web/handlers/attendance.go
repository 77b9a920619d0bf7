package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/recognition"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

// FrameDetector processes camera frames into marks.
type FrameDetector interface {
	Detect(ctx context.Context, imageData []byte) (*recognition.Detection, error)
}

// AttendanceHandler handles marking and reporting endpoints
type AttendanceHandler struct {
	service  *attendance.Service
	detector FrameDetector
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *attendance.Service, detector FrameDetector) *AttendanceHandler {
	return &AttendanceHandler{service: service, detector: detector}
}

type markRequest struct {
	StudentID  int64   `json:"student_id" validate:"required,gt=0"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	SlotID     string  `json:"slot_id"`
	At         string  `json:"at"`
}

type manualMarkRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	SlotID    string `json:"slot_id" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

// Mark records a recognition event for the slot active now. Admins may pass
// an instant or force a slot.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.SlotID != "" || req.At != "") && !isAdmin(r) {
		respondError(w, http.StatusForbidden, "slot_id and at require the admin role")
		return
	}

	var at time.Time
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			respondError(w, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	result, err := h.service.Mark(r.Context(), attendance.MarkRequest{
		StudentID:  req.StudentID,
		At:         at,
		Confidence: req.Confidence,
		ForcedSlot: req.SlotID,
	})
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, statusCode(result.Status), result)
}

func isAdmin(r *http.Request) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	return claims != nil && claims.Role == middleware.RoleAdmin
}

// Manual records an operator mark for a day and slot
func (h *AttendanceHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req manualMarkRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.MarkManual(r.Context(), attendance.ManualRequest{
		StudentID: req.StudentID,
		Date:      req.Date,
		SlotID:    req.SlotID,
		Reason:    req.Reason,
	})
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	status := statusCode(result.Status)
	if result.Status == attendance.StatusAlreadyMarked {
		status = http.StatusConflict
	}
	if result.Success {
		log.Printf("Manual mark: student %d, %s, %s", req.StudentID, sanitizeForLog(req.Date), sanitizeForLog(req.SlotID))
	}
	respondJSON(w, status, result)
}

// readFrame reads the uploaded frame from a multipart "file" part or the raw body.
func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxFrameUploadSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(constants.MaxFrameUploadSize); err != nil {
			return nil, fmt.Errorf("failed to parse form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("file is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

// Detect runs face recognition on a camera frame and marks every recognised student
func (h *AttendanceHandler) Detect(w http.ResponseWriter, r *http.Request) {
	data, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	detection, err := h.detector.Detect(r.Context(), data)
	if err != nil {
		if errors.Is(err, attendance.ErrStoreUnavailable) {
			respondStoreError(w, r, err)
			return
		}
		log.Printf("Detect: %v", err)
		respondError(w, http.StatusBadGateway, "face service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("%d faces detected, %d marked", detection.FacesDetected, detection.Marked),
		"detection": detection,
	})
}

// Live returns the present/absent counts for a day (today by default)
func (h *AttendanceHandler) Live(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LiveCount(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, statusCode(result.Status), result)
}

// Breakdown lists the students marked per slot on a day
func (h *AttendanceHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SlotBreakdown(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, statusCode(result.Status), result)
}

// Recompute rebuilds the stored summary of a day from its marks
func (h *AttendanceHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RecomputeSummary(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, statusCode(result.Status), result)
}
