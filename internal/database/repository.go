package database

import (
	"context"
)

// SlotStore persists the slot catalog configuration.
type SlotStore interface {
	// ListSlots returns slots ordered by start time. Inactive slots are included on request.
	ListSlots(ctx context.Context, includeInactive bool) ([]SlotDefinition, error)
	// CountSlots returns the number of slots ever configured, active or not
	CountSlots(ctx context.Context) (int, error)
	// CreateSlot inserts a new slot, ErrConflict if the id is taken
	CreateSlot(ctx context.Context, slot *SlotDefinition) error
	// UpdateSlotTimes changes the window of an active slot, ErrNotFound if none matched
	UpdateSlotTimes(ctx context.Context, slotID string, start, end TimeOfDay) error
	// SetSlotActive activates or deactivates a slot, ErrNotFound if none matched
	SetSlotActive(ctx context.Context, slotID string, active bool) error
}

// SummaryFunc derives the summary of a day from all of that day's marks.
type SummaryFunc func(marks []AttendanceMark) *DailySummary

// MarkStore is the attendance mark table. Only the ledger writes to it.
type MarkStore interface {
	// InsertMark stores a mark and fills its ID. When project is set, the
	// summary of the mark's day is rebuilt from the day's marks and saved in
	// the same transaction: either both rows are written or neither is.
	// A violation of the (student_id, date, slot_id) constraint is reported
	// as ErrDuplicateMark.
	InsertMark(ctx context.Context, mark *AttendanceMark, project SummaryFunc) (*DailySummary, error)
	// GetMark returns the mark for the triple, nil if absent
	GetMark(ctx context.Context, studentID int64, date, slotID string) (*AttendanceMark, error)
	// ListMarksByDate returns the marks of a day ordered by slot and mark time
	ListMarksByDate(ctx context.Context, date string) ([]AttendanceMark, error)
	// ListMarksByStudent returns a student's marks in the inclusive date range
	ListMarksByStudent(ctx context.Context, studentID int64, from, to string) ([]AttendanceMark, error)
}

// SummaryStore holds derived daily summaries.
type SummaryStore interface {
	// SaveSummary inserts or overwrites the summary for its date
	SaveSummary(ctx context.Context, summary *DailySummary) error
	// GetSummary returns the stored summary, nil if none was computed
	GetSummary(ctx context.Context, date string) (*DailySummary, error)
}

// HolidayStore manages holiday dates.
type HolidayStore interface {
	GetHoliday(ctx context.Context, date string) (*Holiday, error)
	// ListHolidays returns holidays in the inclusive range; empty bounds are open
	ListHolidays(ctx context.Context, from, to string) ([]Holiday, error)
	AddHoliday(ctx context.Context, holiday *Holiday) error
	DeleteHoliday(ctx context.Context, id int64) error
}

// StudentDirectory is the read-only student collaborator.
type StudentDirectory interface {
	// GetStudent returns the student, nil if unknown
	GetStudent(ctx context.Context, id int64) (*Student, error)
	CountActiveStudents(ctx context.Context) (int, error)
	ListActiveStudents(ctx context.Context) ([]Student, error)
}

// StudentWriter maintains the local student table.
type StudentWriter interface {
	StudentDirectory
	// SaveStudent inserts or updates a student; a zero ID is assigned by the store
	SaveStudent(ctx context.Context, student *Student) error
}

// EmbeddingStore keeps enrolled face embeddings.
type EmbeddingStore interface {
	SaveEmbedding(ctx context.Context, emb *StoredEmbedding) error
	ListEmbeddings(ctx context.Context) ([]StoredEmbedding, error)
	CountEmbeddings(ctx context.Context) (int, error)
}

// Store is the full persistence surface implemented by each backend.
type Store interface {
	SlotStore
	MarkStore
	SummaryStore
	HolidayStore
	StudentWriter
	EmbeddingStore

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
	Close() error
}
