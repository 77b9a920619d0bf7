package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// MarkRequest is an automatic mark, usually coming from face recognition.
type MarkRequest struct {
	StudentID  int64
	At         time.Time // zero means now
	Confidence float64
	ForcedSlot string // administrator override of time-based resolution
}

// ManualRequest is an operator-entered mark for a given day and slot.
type ManualRequest struct {
	StudentID int64
	Date      string
	SlotID    string
	Reason    string
}

// MarkOutcome describes a stored mark.
type MarkOutcome struct {
	Mark    database.AttendanceMark
	Student database.Student
	Slot    database.SlotDefinition
	Summary *database.DailySummary
}

// Ledger records attendance marks. The (student, date, slot) uniqueness is
// enforced by the store, so concurrent marks for the same triple yield exactly
// one stored mark.
type Ledger struct {
	catalog   *Catalog
	marks     database.MarkStore
	students  database.StudentDirectory
	holidays  database.HolidayStore
	projector *Projector
	loc       *time.Location
	now       func() time.Time
}

// NewLedger creates a ledger. loc is the campus time zone.
func NewLedger(catalog *Catalog, marks database.MarkStore, students database.StudentDirectory,
	holidays database.HolidayStore, projector *Projector, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		catalog:   catalog,
		marks:     marks,
		students:  students,
		holidays:  holidays,
		projector: projector,
		loc:       loc,
		now:       time.Now,
	}
}

// Mark records attendance for the slot active at req.At, or for the forced
// slot. A forced slot still respects holidays.
func (l *Ledger) Mark(ctx context.Context, req MarkRequest) (*MarkOutcome, error) {
	at := req.At
	if at.IsZero() {
		at = l.now()
	}
	at = at.In(l.loc)
	snap := l.catalog.Snapshot()

	var slot database.SlotDefinition
	if req.ForcedSlot != "" {
		s, ok := snap.Lookup(req.ForcedSlot)
		if !ok {
			return nil, &UnknownSlotError{SlotID: req.ForcedSlot}
		}
		if err := l.checkHoliday(ctx, database.FormatDate(at)); err != nil {
			return nil, err
		}
		slot = s
	} else {
		active := CurrentSlot(snap, at)
		if active == nil {
			return nil, &OutsideSlotError{Next: NextSlotAfter(snap, at)}
		}
		slot = active.Slot
	}

	student, err := l.activeStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	confidence := req.Confidence
	mark := database.AttendanceMark{
		StudentID:  req.StudentID,
		Date:       database.FormatDate(at),
		SlotID:     slot.SlotID,
		MarkedAt:   at,
		Confidence: &confidence,
		IsManual:   req.ForcedSlot != "",
	}
	return l.insert(ctx, &mark, student, slot)
}

// MarkManual records an operator mark. The slot must be in the active catalog
// and the day must not be a holiday.
func (l *Ledger) MarkManual(ctx context.Context, req ManualRequest) (*MarkOutcome, error) {
	day, err := database.ParseDate(req.Date, l.loc)
	if err != nil {
		return nil, &InvalidDateError{Value: req.Date}
	}
	date := database.FormatDate(day)

	slot, ok := l.catalog.Snapshot().Lookup(req.SlotID)
	if !ok {
		return nil, &UnknownSlotError{SlotID: req.SlotID}
	}

	if err := l.checkHoliday(ctx, date); err != nil {
		return nil, err
	}

	student, err := l.activeStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = fmt.Sprintf("%s manual attendance", slot.DisplayName)
	}
	mark := database.AttendanceMark{
		StudentID:    req.StudentID,
		Date:         date,
		SlotID:       slot.SlotID,
		MarkedAt:     l.now().In(l.loc),
		IsManual:     true,
		ManualReason: reason,
	}
	return l.insert(ctx, &mark, student, slot)
}

func (l *Ledger) checkHoliday(ctx context.Context, date string) error {
	holiday, err := l.holidays.GetHoliday(ctx, date)
	if err != nil {
		return storeError("get holiday", err)
	}
	if holiday != nil {
		return &HolidayError{Date: date, Name: holiday.Name}
	}
	return nil
}

func (l *Ledger) activeStudent(ctx context.Context, id int64) (*database.Student, error) {
	student, err := l.students.GetStudent(ctx, id)
	if err != nil {
		return nil, storeError("get student", err)
	}
	if !student.IsActive() {
		return nil, &StudentNotFoundError{StudentID: id}
	}
	return student, nil
}

// insert relies on the store's unique constraint; there is no read-before-write.
// The mark and the day's summary are written in one store transaction.
func (l *Ledger) insert(ctx context.Context, mark *database.AttendanceMark,
	student *database.Student, slot database.SlotDefinition) (*MarkOutcome, error) {
	project, err := l.projector.summaryFunc(ctx, mark.Date)
	if err != nil {
		return nil, err
	}

	summary, err := l.marks.InsertMark(ctx, mark, project)
	if errors.Is(err, database.ErrDuplicateMark) {
		already := &AlreadyMarkedError{
			StudentID:   mark.StudentID,
			StudentName: student.Name,
			Date:        mark.Date,
			SlotID:      slot.SlotID,
			SlotName:    slot.DisplayName,
		}
		existing, getErr := l.marks.GetMark(ctx, mark.StudentID, mark.Date, slot.SlotID)
		if getErr != nil {
			log.Printf("Warning: failed to load existing mark for student %d: %v", mark.StudentID, getErr)
		} else if existing != nil {
			already.MarkedAt = existing.MarkedAt.In(l.loc)
		}
		return nil, already
	}
	if err != nil {
		return nil, storeError("insert mark", err)
	}
	log.Printf("Marked %s (%d) present for %s on %s", student.Name, student.ID, slot.SlotID, mark.Date)

	return &MarkOutcome{
		Mark:    *mark,
		Student: *student,
		Slot:    slot,
		Summary: summary,
	}, nil
}
