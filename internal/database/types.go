package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of calendar days used as keys across the store.
const DateLayout = "2006-01-02"

// Student statuses
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
)

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	limits := []int{23, 59, 59}
	var values [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) != 2 || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
		}
		values[i] = n
	}
	return TimeOfDay(values[0]*3600 + values[1]*60 + values[2]), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall-clock part of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Minutes returns whole minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t) / 60
}

// Clock formats the value as HH:MM:SS, the storage representation.
func (t TimeOfDay) Clock() string {
	v := int(t) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", v/3600, (v%3600)/60, v%60)
}

// String formats the value as HH:MM, with seconds only when non-zero.
func (t TimeOfDay) String() string {
	v := int(t) % secondsPerDay
	if v%60 != 0 {
		return t.Clock()
	}
	return fmt.Sprintf("%02d:%02d", v/3600, (v%3600)/60)
}

// MarshalJSON implements json.Marshaler.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// On returns the instant at this time of day on the calendar day of date.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	v := int(t)
	return time.Date(y, m, d, v/3600, (v%3600)/60, v%60, 0, date.Location())
}

// ParseDate parses a YYYY-MM-DD calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate returns the calendar day of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SlotDefinition is a named attendance window.
type SlotDefinition struct {
	SlotID      string    `json:"slot_id"`
	DisplayName string    `json:"display_name"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contains reports whether tod falls inside the inclusive window.
func (s *SlotDefinition) Contains(tod TimeOfDay) bool {
	return s.StartTime <= tod && tod <= s.EndTime
}

// Overlaps applies the half-open overlap test against another window.
func (s *SlotDefinition) Overlaps(start, end TimeOfDay) bool {
	return !(end <= s.StartTime || start >= s.EndTime)
}

// AttendanceMark is one recorded attendance for a (student, date, slot) triple.
type AttendanceMark struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	Date         string    `json:"date"`
	SlotID       string    `json:"slot_id"`
	MarkedAt     time.Time `json:"marked_at"`
	Confidence   *float64  `json:"confidence"` // nil for manual marks
	IsManual     bool      `json:"is_manual"`
	ManualReason string    `json:"manual_reason,omitempty"`
}

// DailySummary is the derived per-day aggregate. It is never authoritative.
type DailySummary struct {
	Date           string         `json:"date"`
	TotalStudents  int            `json:"total_students"`
	PresentPerSlot map[string]int `json:"present_per_slot"`
	TotalPresent   int            `json:"total_present"`
}

// Student is a directory entry referenced by marks.
type Student struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status"`
}

// IsActive reports whether the student may be marked.
func (s *Student) IsActive() bool {
	return s != nil && s.Status == StudentStatusActive
}

// Holiday is a calendar day excluded from attendance.
type Holiday struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredEmbedding is an enrolled face embedding of a student.
type StoredEmbedding struct {
	ID        int64
	StudentID int64
	Embedding []float32
	Quality   float64
	CreatedAt time.Time
}

// Store errors shared by all backends.
var (
	// ErrDuplicateMark is returned when the (student_id, date, slot_id) constraint rejects an insert.
	ErrDuplicateMark = errors.New("attendance mark already exists")
	// ErrNotFound is returned by updates and deletes that matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key other than the mark triple is violated.
	ErrConflict = errors.New("record already exists")
)
