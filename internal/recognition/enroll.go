package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
)

// Enrollment errors
var (
	ErrNoFace        = errors.New("no face found in image")
	ErrMultipleFaces = errors.New("image must contain exactly one face")
)

// Enroller stores student face embeddings and adds them to the gallery.
type Enroller struct {
	faces    FaceDetector
	store    database.EmbeddingStore
	students database.StudentDirectory
	gallery  *Gallery
}

// NewEnroller creates an enroller.
func NewEnroller(faces FaceDetector, store database.EmbeddingStore, students database.StudentDirectory, gallery *Gallery) *Enroller {
	return &Enroller{faces: faces, store: store, students: students, gallery: gallery}
}

// EnrollImage enrolls the single face found in a portrait image.
func (e *Enroller) EnrollImage(ctx context.Context, studentID int64, imageData []byte) (*database.StoredEmbedding, error) {
	if err := e.checkStudent(ctx, studentID); err != nil {
		return nil, err
	}

	resp, err := e.faces.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	switch len(resp.Faces) {
	case 0:
		return nil, ErrNoFace
	case 1:
	default:
		return nil, ErrMultipleFaces
	}

	face := resp.Faces[0]
	return e.save(ctx, studentID, face.Embedding, face.DetScore)
}

// EnrollEmbedding enrolls a precomputed embedding.
func (e *Enroller) EnrollEmbedding(ctx context.Context, studentID int64, embedding []float32, quality float64) (*database.StoredEmbedding, error) {
	if err := e.checkStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return e.save(ctx, studentID, embedding, quality)
}

func (e *Enroller) checkStudent(ctx context.Context, studentID int64) error {
	student, err := e.students.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("%w: get student: %w", attendance.ErrStoreUnavailable, err)
	}
	if !student.IsActive() {
		return &attendance.StudentNotFoundError{StudentID: studentID}
	}
	return nil
}

func (e *Enroller) save(ctx context.Context, studentID int64, embedding []float32, quality float64) (*database.StoredEmbedding, error) {
	if len(embedding) == 0 {
		return nil, ErrNoFace
	}
	if err := e.gallery.checkDim(len(embedding)); err != nil {
		return nil, err
	}
	emb := &database.StoredEmbedding{StudentID: studentID, Embedding: embedding, Quality: quality}
	if err := e.store.SaveEmbedding(ctx, emb); err != nil {
		return nil, fmt.Errorf("%w: save embedding: %w", attendance.ErrStoreUnavailable, err)
	}
	if err := e.gallery.Add(*emb); err != nil {
		return nil, fmt.Errorf("index embedding: %w", err)
	}
	return emb, nil
}
