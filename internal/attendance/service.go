package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// Result statuses
const (
	StatusMarked          = "marked"
	StatusAlreadyMarked   = "already_marked"
	StatusOutsideSlot     = "outside_slot"
	StatusUnknownSlot     = "unknown_slot"
	StatusStudentNotFound = "student_not_found"
	StatusHoliday         = "holiday"
	StatusInvalidRange    = "invalid_range"
	StatusInvalidDate     = "invalid_date"
	StatusOverlap         = "overlap"
	StatusDuplicateSlot   = "duplicate_slot"
	StatusConfigError     = "config_error"
	StatusOK              = "ok"
)

// Result is the outcome envelope returned to callers at the boundary.
type Result struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MarkResult is the outcome of a mark request.
type MarkResult struct {
	Result
	Mark        *database.AttendanceMark `json:"mark,omitempty"`
	StudentID   int64                    `json:"student_id"`
	StudentName string                   `json:"student_name,omitempty"`
	SlotID      string                   `json:"slot_id,omitempty"`
	SlotName    string                   `json:"slot_name,omitempty"`
	NextSlot    *NextSlot                `json:"next_slot,omitempty"`
	Summary     *database.DailySummary   `json:"summary,omitempty"`
	MarkedAt    *time.Time               `json:"marked_at,omitempty"` // time of the existing mark when already marked
}

// CatalogResult carries a catalog snapshot with the current and next slots.
type CatalogResult struct {
	Result
	Slots       []database.SlotDefinition `json:"slots"`
	CurrentSlot *ActiveSlot               `json:"current_slot"`
	NextSlot    *NextSlot                 `json:"next_slot"`
	LoadedAt    time.Time                 `json:"loaded_at"`
}

// Service is the boundary over the attendance components. Domain outcomes are
// reported in the returned result; only infrastructure failures are errors.
type Service struct {
	Catalog   *Catalog
	Ledger    *Ledger
	Projector *Projector
	Query     *QueryService
	now       func() time.Time
	loc       *time.Location
}

// NewService wires the components.
func NewService(catalog *Catalog, ledger *Ledger, projector *Projector, query *QueryService, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		Catalog:   catalog,
		Ledger:    ledger,
		Projector: projector,
		Query:     query,
		now:       time.Now,
		loc:       loc,
	}
}

// Classify maps an error to a result status. ok is false for errors that
// are not domain outcomes.
func Classify(err error) (status string, ok bool) {
	var (
		outside   *OutsideSlotError
		already   *AlreadyMarkedError
		unknown   *UnknownSlotError
		student   *StudentNotFoundError
		holiday   *HolidayError
		invalid   *InvalidRangeError
		badDate   *InvalidDateError
		overlap   *OverlapError
		duplicate *DuplicateSlotError
		config    *ConfigLoadError
	)
	switch {
	case err == nil:
		return StatusOK, true
	case errors.Is(err, ErrStoreUnavailable):
		return "", false
	case errors.As(err, &already):
		return StatusAlreadyMarked, true
	case errors.As(err, &outside):
		return StatusOutsideSlot, true
	case errors.As(err, &unknown):
		return StatusUnknownSlot, true
	case errors.As(err, &student):
		return StatusStudentNotFound, true
	case errors.As(err, &holiday):
		return StatusHoliday, true
	case errors.As(err, &invalid):
		return StatusInvalidRange, true
	case errors.As(err, &badDate):
		return StatusInvalidDate, true
	case errors.As(err, &overlap):
		return StatusOverlap, true
	case errors.As(err, &duplicate):
		return StatusDuplicateSlot, true
	case errors.As(err, &config):
		return StatusConfigError, true
	}
	return "", false
}

// failure turns a domain error into a result, or returns err for infrastructure failures.
func failure(err error) (Result, error) {
	status, ok := Classify(err)
	if !ok {
		return Result{}, err
	}
	return Result{Success: false, Status: status, Message: err.Error()}, nil
}

// Mark records an automatic mark.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	outcome, err := s.Ledger.Mark(ctx, req)
	return s.markResult(req.StudentID, outcome, err)
}

// MarkManual records an operator mark.
func (s *Service) MarkManual(ctx context.Context, req ManualRequest) (*MarkResult, error) {
	outcome, err := s.Ledger.MarkManual(ctx, req)
	return s.markResult(req.StudentID, outcome, err)
}

func (s *Service) markResult(studentID int64, outcome *MarkOutcome, err error) (*MarkResult, error) {
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return nil, ferr
		}
		result := &MarkResult{Result: res, StudentID: studentID}
		var outside *OutsideSlotError
		var already *AlreadyMarkedError
		switch {
		case errors.As(err, &outside):
			result.NextSlot = outside.Next
		case errors.As(err, &already):
			result.StudentName = already.StudentName
			result.SlotID = already.SlotID
			result.SlotName = already.SlotName
			if !already.MarkedAt.IsZero() {
				result.MarkedAt = &already.MarkedAt
			}
		}
		return result, nil
	}

	mark := outcome.Mark
	return &MarkResult{
		Result: Result{
			Success: true,
			Status:  StatusMarked,
			Message: fmt.Sprintf("%s marked present for %s", outcome.Student.Name, outcome.Slot.DisplayName),
		},
		Mark:        &mark,
		StudentID:   outcome.Student.ID,
		StudentName: outcome.Student.Name,
		SlotID:      outcome.Slot.SlotID,
		SlotName:    outcome.Slot.DisplayName,
		Summary:     outcome.Summary,
	}, nil
}

// Slots returns the current catalog with the slot active now.
func (s *Service) Slots() *CatalogResult {
	return s.catalogResult(s.Catalog.Snapshot(), "")
}

// UpdateSlot changes a slot window.
func (s *Service) UpdateSlot(ctx context.Context, slotID string, start, end database.TimeOfDay) (*CatalogResult, error) {
	snap, err := s.Catalog.Update(ctx, slotID, start, end)
	return s.catalogChange(snap, err, fmt.Sprintf("Slot %s updated", slotID))
}

// CreateSlot adds a slot.
func (s *Service) CreateSlot(ctx context.Context, def database.SlotDefinition) (*CatalogResult, error) {
	snap, err := s.Catalog.Create(ctx, def)
	return s.catalogChange(snap, err, fmt.Sprintf("Slot %s created", def.SlotID))
}

// DeactivateSlot removes a slot from the catalog.
func (s *Service) DeactivateSlot(ctx context.Context, slotID string) (*CatalogResult, error) {
	snap, err := s.Catalog.Deactivate(ctx, slotID)
	return s.catalogChange(snap, err, fmt.Sprintf("Slot %s deactivated", slotID))
}

// ActivateSlot returns a deactivated slot to the catalog.
func (s *Service) ActivateSlot(ctx context.Context, slotID string) (*CatalogResult, error) {
	snap, err := s.Catalog.Activate(ctx, slotID)
	return s.catalogChange(snap, err, fmt.Sprintf("Slot %s activated", slotID))
}

// ReloadSlots re-reads the catalog from the store.
func (s *Service) ReloadSlots(ctx context.Context) (*CatalogResult, error) {
	snap, err := s.Catalog.Reload(ctx)
	return s.catalogChange(snap, err, "Slot configuration reloaded")
}

func (s *Service) catalogChange(snap *Snapshot, err error, message string) (*CatalogResult, error) {
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return nil, ferr
		}
		return &CatalogResult{Result: res, Slots: s.Catalog.Snapshot().Slots}, nil
	}
	return s.catalogResult(snap, message), nil
}

func (s *Service) catalogResult(snap *Snapshot, message string) *CatalogResult {
	now := s.now().In(s.loc)
	if message == "" {
		message = fmt.Sprintf("%d slots configured", snap.Len())
	}
	slots := snap.Slots
	if slots == nil {
		slots = []database.SlotDefinition{}
	}
	return &CatalogResult{
		Result:      Result{Success: true, Status: StatusOK, Message: message},
		Slots:       slots,
		CurrentSlot: CurrentSlot(snap, now),
		NextSlot:    NextSlotAfter(snap, now),
		LoadedAt:    snap.LoadedAt,
	}
}

// LiveCountResult wraps LiveCount.
type LiveCountResult struct {
	Result
	*LiveCount
}

// LiveCount reports today's or date's attendance.
func (s *Service) LiveCount(ctx context.Context, date string) (*LiveCountResult, error) {
	live, err := s.Query.LiveCount(ctx, date, s.now())
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return nil, ferr
		}
		return &LiveCountResult{Result: res}, nil
	}
	return &LiveCountResult{
		Result: Result{
			Success: true,
			Status:  StatusOK,
			Message: fmt.Sprintf("%d of %d students present", live.TotalPresent, live.TotalStudents),
		},
		LiveCount: live,
	}, nil
}

// HistoryResult wraps StudentHistory.
type HistoryResult struct {
	Result
	*StudentHistory
}

// StudentHistory reports a student's attendance over a date range.
func (s *Service) StudentHistory(ctx context.Context, studentID int64, from, to string) (*HistoryResult, error) {
	history, err := s.Query.StudentHistory(ctx, studentID, from, to)
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return nil, ferr
		}
		return &HistoryResult{Result: res}, nil
	}
	return &HistoryResult{
		Result: Result{
			Success: true,
			Status:  StatusOK,
			Message: fmt.Sprintf("%d working days, %.1f%% attended", history.Statistics.WorkingDays,
				history.Statistics.SlotWeightedPercentage),
		},
		StudentHistory: history,
	}, nil
}

// BreakdownResult wraps SlotBreakdown.
type BreakdownResult struct {
	Result
	Date  string              `json:"date"`
	Slots []SlotBreakdownItem `json:"slots"`
}

// SlotBreakdown lists the students marked per slot on date.
func (s *Service) SlotBreakdown(ctx context.Context, date string) (*BreakdownResult, error) {
	items, err := s.Query.SlotBreakdown(ctx, date)
	if err != nil {
		res, ferr := failure(err)
		if ferr != nil {
			return nil, ferr
		}
		return &BreakdownResult{Result: res, Date: date}, nil
	}
	return &BreakdownResult{
		Result: Result{Success: true, Status: StatusOK, Message: fmt.Sprintf("%d slots", len(items))},
		Date:   date,
		Slots:  items,
	}, nil
}

// SummaryResult wraps a recomputed summary.
type SummaryResult struct {
	Result
	Summary *database.DailySummary `json:"summary,omitempty"`
}

// RecomputeSummary rebuilds the stored summary of date.
func (s *Service) RecomputeSummary(ctx context.Context, date string) (*SummaryResult, error) {
	day, err := database.ParseDate(date, s.loc)
	if err != nil {
		res, _ := failure(&InvalidDateError{Value: date})
		return &SummaryResult{Result: res}, nil
	}
	summary, err := s.Projector.Recompute(ctx, database.FormatDate(day))
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		Result:  Result{Success: true, Status: StatusOK, Message: "Summary recomputed for " + summary.Date},
		Summary: summary,
	}, nil
}
