package recognition

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/attendance/internal/attendance"
)

// StatusUnknown is reported for faces that match no enrolled student.
const StatusUnknown = "unknown"

// Marker records automatic attendance marks.
type Marker interface {
	Mark(ctx context.Context, req attendance.MarkRequest) (*attendance.MarkResult, error)
}

// FaceOutcome is the attendance outcome of one detected face.
type FaceOutcome struct {
	FaceIndex   int       `json:"face_index"`
	BBox        []float64 `json:"bbox"`
	DetScore    float64   `json:"det_score"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	StudentID   int64     `json:"student_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	SlotID      string    `json:"slot_id,omitempty"`
	Similarity  float64   `json:"similarity"`
}

// Detection is the result of processing one camera frame.
type Detection struct {
	FrameID       string        `json:"frame_id"`
	FacesDetected int           `json:"faces_detected"`
	Marked        int           `json:"marked"`
	Faces         []FaceOutcome `json:"faces"`
}

// Detector runs the frame -> faces -> gallery -> mark pipeline.
type Detector struct {
	faces   FaceDetector
	gallery *Gallery
	marker  Marker
	now     func() time.Time
}

// NewDetector creates a detector.
func NewDetector(faces FaceDetector, gallery *Gallery, marker Marker) *Detector {
	return &Detector{faces: faces, gallery: gallery, marker: marker, now: time.Now}
}

// Detect processes a frame. Every recognised face is marked for the slot
// active at the time the frame was received.
func (d *Detector) Detect(ctx context.Context, imageData []byte) (*Detection, error) {
	at := d.now()
	frameID := uuid.NewString()

	resp, err := d.faces.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	detection := &Detection{
		FrameID:       frameID,
		FacesDetected: len(resp.Faces),
		Faces:         make([]FaceOutcome, 0, len(resp.Faces)),
	}

	for _, face := range resp.Faces {
		outcome := FaceOutcome{
			FaceIndex: face.FaceIndex,
			BBox:      face.BBox,
			DetScore:  face.DetScore,
			Status:    StatusUnknown,
			Message:   "face not recognised",
		}

		match, ok := d.gallery.Match(face.Embedding)
		if match != nil {
			outcome.Similarity = match.Similarity
		}
		if !ok {
			detection.Faces = append(detection.Faces, outcome)
			continue
		}

		result, err := d.marker.Mark(ctx, attendance.MarkRequest{
			StudentID:  match.StudentID,
			At:         at,
			Confidence: match.Similarity,
		})
		if err != nil {
			return nil, fmt.Errorf("mark student %d: %w", match.StudentID, err)
		}

		outcome.Status = result.Status
		outcome.Message = result.Message
		outcome.StudentID = match.StudentID
		outcome.StudentName = result.StudentName
		outcome.SlotID = result.SlotID
		if result.Success {
			detection.Marked++
		}
		detection.Faces = append(detection.Faces, outcome)
	}

	if detection.FacesDetected > 0 {
		log.Printf("Frame %s: %d faces, %d marked", frameID, detection.FacesDetected, detection.Marked)
	}
	return detection, nil
}
