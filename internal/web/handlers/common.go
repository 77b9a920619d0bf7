package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/attendance/internal/attendance"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var validate = validator.New()

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, attendance.Result{Success: false, Status: "error", Message: message})
}

// respondStoreError reports a store failure as 503. Details stay in the log.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
	respondError(w, http.StatusServiceUnavailable, "attendance store unavailable")
}

// statusCode maps a result status to an HTTP status code.
func statusCode(status string) int {
	switch status {
	case attendance.StatusMarked, attendance.StatusAlreadyMarked, attendance.StatusOK:
		return http.StatusOK
	case attendance.StatusOutsideSlot, attendance.StatusInvalidRange, attendance.StatusInvalidDate,
		attendance.StatusOverlap, attendance.StatusHoliday:
		return http.StatusUnprocessableEntity
	case attendance.StatusUnknownSlot, attendance.StatusStudentNotFound:
		return http.StatusNotFound
	case attendance.StatusDuplicateSlot:
		return http.StatusConflict
	case attendance.StatusConfigError:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// decodeJSON decodes and validates a request body.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New(errInvalidRequestBody)
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

// validationMessage turns validator errors into a readable message.
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "gt", "gte", "lte", "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// int64Param parses a numeric chi URL parameter.
func int64Param(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check reports the service and store status.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Printf("Health check: store ping failed: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success":  false,
			"status":   "degraded",
			"message":  "attendance store unavailable",
			"database": "unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"status":   "ok",
		"message":  "ok",
		"database": "ok",
	})
}
