package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// ErrStoreUnavailable marks infrastructure failures of the persistent store.
// Requests hitting it must fail; attendance is never written without the
// store's uniqueness guarantee.
var ErrStoreUnavailable = errors.New("attendance store unavailable")

// storeError wraps a backend error so callers can match ErrStoreUnavailable.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// ConfigLoadError is returned when the slot catalog cannot be read.
type ConfigLoadError struct {
	Err error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("loading slot configuration: %v", e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// InvalidRangeError is returned when a window or date range does not start before it ends.
type InvalidRangeError struct {
	Start string
	End   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("start %s must be before end %s", e.Start, e.End)
}

// OverlapError is returned when a slot window intersects another active slot.
type OverlapError struct {
	SlotID string
	Other  database.SlotDefinition
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("time slot %s overlaps with %s (%s-%s)",
		e.SlotID, e.Other.SlotID, e.Other.StartTime, e.Other.EndTime)
}

// UnknownSlotError is returned for slot ids missing from the active catalog.
type UnknownSlotError struct {
	SlotID string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("invalid slot: %s", e.SlotID)
}

// OutsideSlotError is returned when no slot is active at the mark time.
// Next is nil when no slot remains today.
type OutsideSlotError struct {
	Next *NextSlot
}

func (e *OutsideSlotError) Error() string {
	msg := "attendance can only be marked during slot hours"
	if e.Next != nil {
		msg += fmt.Sprintf(". Next slot: %s in %dh %dm",
			e.Next.Slot.DisplayName, e.Next.WaitMinutes/60, e.Next.WaitMinutes%60)
	}
	return msg
}

// StudentNotFoundError is returned when the student is unknown or inactive.
type StudentNotFoundError struct {
	StudentID int64
}

func (e *StudentNotFoundError) Error() string {
	return fmt.Sprintf("student %d not found or inactive", e.StudentID)
}

// AlreadyMarkedError reports an existing mark for the triple. It is informational.
type AlreadyMarkedError struct {
	StudentID   int64
	StudentName string
	Date        string
	SlotID      string
	SlotName    string
	MarkedAt    time.Time // zero when the existing mark could not be loaded
}

func (e *AlreadyMarkedError) Error() string {
	name := e.StudentName
	if name == "" {
		name = fmt.Sprintf("student %d", e.StudentID)
	}
	if e.MarkedAt.IsZero() {
		return fmt.Sprintf("%s already marked present for %s on %s", name, e.SlotName, e.Date)
	}
	return fmt.Sprintf("%s already marked present for %s on %s at %s",
		name, e.SlotName, e.Date, e.MarkedAt.Format("15:04:05"))
}

// HolidayError is returned for manual marks on a configured holiday.
type HolidayError struct {
	Date string
	Name string
}

func (e *HolidayError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("cannot mark attendance on a holiday (%s)", e.Date)
	}
	return fmt.Sprintf("cannot mark attendance on a holiday (%s: %s)", e.Date, e.Name)
}

// InvalidDateError is returned for dates that are not YYYY-MM-DD.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}
