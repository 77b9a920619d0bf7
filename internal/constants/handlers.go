package constants

// Handler constants
const (
	// DefaultStudentSearchLimit caps directory search results
	DefaultStudentSearchLimit = 50

	// MaxFrameUploadSize is the maximum camera frame size accepted by the detect endpoint (10MB)
	MaxFrameUploadSize = 10 << 20

	// DefaultTokenTTLHours is the lifetime of an issued auth token
	DefaultTokenTTLHours = 12
)
