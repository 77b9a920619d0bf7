package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/directory"
	"github.com/kozaktomas/attendance/internal/recognition"
)

// FaceEnroller stores student face embeddings.
type FaceEnroller interface {
	EnrollImage(ctx context.Context, studentID int64, imageData []byte) (*database.StoredEmbedding, error)
	EnrollEmbedding(ctx context.Context, studentID int64, embedding []float32, quality float64) (*database.StoredEmbedding, error)
}

// StudentsHandler handles student directory endpoints
type StudentsHandler struct {
	service  *attendance.Service
	students database.StudentDirectory
	enroller FaceEnroller
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(service *attendance.Service, students database.StudentDirectory, enroller FaceEnroller) *StudentsHandler {
	return &StudentsHandler{service: service, students: students, enroller: enroller}
}

type enrollEmbeddingRequest struct {
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
	Quality   float64   `json:"quality" validate:"gte=0,lte=1"`
}

// Search lists active students whose name or code matches q
func (h *StudentsHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultStudentSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.DefaultStudentSearchLimit)
	}

	students, err := h.students.ListActiveStudents(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	result := directory.Search(students, r.URL.Query().Get("q"), limit)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  strconv.Itoa(len(result)) + " students",
		"students": result,
	})
}

// History reports a student's attendance over ?from= and ?to=
func (h *StudentsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.StudentHistory(r.Context(), id, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, statusCode(result.Status), result)
}

// Enroll stores a face embedding for a student, from a portrait upload or a precomputed vector
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var emb *database.StoredEmbedding
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req enrollEmbeddingRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		emb, err = h.enroller.EnrollEmbedding(r.Context(), id, req.Embedding, req.Quality)
	} else {
		var data []byte
		data, err = readFrame(w, r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(data) == 0 {
			respondError(w, http.StatusBadRequest, "image is required")
			return
		}
		emb, err = h.enroller.EnrollImage(r.Context(), id, data)
	}

	var notFound *attendance.StudentNotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound):
		respondJSON(w, http.StatusNotFound, attendance.Result{
			Success: false, Status: attendance.StatusStudentNotFound, Message: err.Error(),
		})
		return
	case errors.Is(err, recognition.ErrNoFace), errors.Is(err, recognition.ErrMultipleFaces):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, attendance.ErrStoreUnavailable):
		respondStoreError(w, r, err)
		return
	default:
		log.Printf("Enroll student %d: %v", id, err)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	log.Printf("Enrolled embedding %d for student %d", emb.ID, id)
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"message":      "face enrolled",
		"embedding_id": emb.ID,
		"student_id":   id,
	})
}

var _ FaceEnroller = (*recognition.Enroller)(nil)

