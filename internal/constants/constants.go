// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Recognition constants
const (
	// DefaultRecognitionThreshold is the minimum cosine similarity for a face to
	// be attributed to an enrolled student. Matches must be strictly above it.
	DefaultRecognitionThreshold = 0.60

	// GallerySearchCandidates is the number of HNSW neighbours inspected per face
	GallerySearchCandidates = 5

	// FaceServiceTimeoutSeconds bounds a single call to the face service
	FaceServiceTimeoutSeconds = 30
)

// History constants
const (
	// DefaultHistoryDays is the range used when a history query gives no bounds
	DefaultHistoryDays = 30

	// MaxHistoryDays is the longest range a single history query may span
	MaxHistoryDays = 366
)

// Catalog constants
const (
	// DefaultSlotReloadSeconds is how often the server re-reads the slot catalog.
	// Zero disables the periodic reload.
	DefaultSlotReloadSeconds = 60
)
