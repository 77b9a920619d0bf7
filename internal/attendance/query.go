package attendance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

// Day statuses reported by StudentHistory.
const (
	DayFull       = "full"
	DayPartial    = "partial"
	DayAbsent     = "absent"
	DayHoliday    = "holiday"
	DayNonWorking = "non_working"
	DayUpcoming   = "upcoming"
)

// LiveCount is the attendance picture of one day.
type LiveCount struct {
	Date                 string         `json:"date"`
	TotalStudents        int            `json:"total_students"`
	TotalPresent         int            `json:"total_present"`
	TotalAbsent          int            `json:"total_absent"`
	PerSlotPresent       map[string]int `json:"per_slot_present"`
	AttendancePercentage float64        `json:"attendance_percentage"`
	CurrentSlot          *ActiveSlot    `json:"current_slot"`
	NextSlot             *NextSlot      `json:"next_slot"`
}

// HistoryDay is one calendar day of a student's history.
type HistoryDay struct {
	Date        string   `json:"date"`
	Weekday     string   `json:"weekday"`
	Status      string   `json:"status"`
	MarkedSlots []string `json:"marked_slots"`
	Holiday     string   `json:"holiday,omitempty"`
}

// HistoryStats aggregates a history over working days only.
type HistoryStats struct {
	WorkingDays            int     `json:"working_days"`
	FullDays               int     `json:"full_days"`
	PartialDays            int     `json:"partial_days"`
	AbsentDays             int     `json:"absent_days"`
	HolidayDays            int     `json:"holiday_days"`
	NonWorkingDays         int     `json:"non_working_days"`
	FullDayPercentage      float64 `json:"full_day_percentage"`
	SlotWeightedPercentage float64 `json:"slot_weighted_percentage"`
}

// StudentHistory is the per-day attendance of a student over a date range.
type StudentHistory struct {
	Student    database.Student `json:"student"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Days       []HistoryDay     `json:"days"`
	Statistics HistoryStats     `json:"statistics"`
}

// BreakdownEntry is one student marked in a slot.
type BreakdownEntry struct {
	StudentID    int64     `json:"student_id"`
	StudentCode  string    `json:"student_code"`
	StudentName  string    `json:"student_name"`
	MarkedAt     time.Time `json:"marked_at"`
	Confidence   *float64  `json:"confidence"`
	IsManual     bool      `json:"is_manual"`
	ManualReason string    `json:"manual_reason,omitempty"`
}

// SlotBreakdownItem lists the students marked in one slot.
type SlotBreakdownItem struct {
	SlotID      string           `json:"slot_id"`
	DisplayName string           `json:"display_name"`
	Active      bool             `json:"active"`
	Count       int              `json:"count"`
	Students    []BreakdownEntry `json:"students"`
}

// QueryService answers read queries over marks and summaries.
type QueryService struct {
	catalog     *Catalog
	marks       database.MarkStore
	summaries   database.SummaryStore
	students    database.StudentDirectory
	holidays    database.HolidayStore
	projector   *Projector
	workingDays WorkingDays
	loc         *time.Location
	now         func() time.Time
}

// NewQueryService creates a query service.
func NewQueryService(catalog *Catalog, store QueryStore, students database.StudentDirectory,
	projector *Projector, workingDays WorkingDays, loc *time.Location) *QueryService {
	if loc == nil {
		loc = time.Local
	}
	return &QueryService{
		catalog:     catalog,
		marks:       store,
		summaries:   store,
		students:    students,
		holidays:    store,
		projector:   projector,
		workingDays: workingDays,
		loc:         loc,
		now:         time.Now,
	}
}

// QueryStore is the part of the store read by QueryService.
type QueryStore interface {
	database.MarkStore
	database.SummaryStore
	database.HolidayStore
}

// LiveCount reports present and absent counts for date. current and next
// slots are resolved against now. An empty date means today.
func (q *QueryService) LiveCount(ctx context.Context, date string, now time.Time) (*LiveCount, error) {
	if now.IsZero() {
		now = q.now()
	}
	now = now.In(q.loc)
	if date == "" {
		date = database.FormatDate(now)
	} else if _, err := database.ParseDate(date, q.loc); err != nil {
		return nil, &InvalidDateError{Value: date}
	}

	summary, err := q.summaries.GetSummary(ctx, date)
	if err != nil {
		return nil, storeError("get summary", err)
	}
	if summary == nil {
		if summary, err = q.projector.Compute(ctx, date); err != nil {
			return nil, err
		}
	}

	snap := q.catalog.Snapshot()
	perSlot := make(map[string]int, snap.Len())
	for _, slot := range snap.Slots {
		perSlot[slot.SlotID] = 0
	}
	for slotID, n := range summary.PresentPerSlot {
		perSlot[slotID] = n
	}

	live := &LiveCount{
		Date:                 date,
		TotalStudents:        summary.TotalStudents,
		TotalPresent:         summary.TotalPresent,
		TotalAbsent:          max(0, summary.TotalStudents-summary.TotalPresent),
		PerSlotPresent:       perSlot,
		AttendancePercentage: percentage(float64(summary.TotalPresent), float64(summary.TotalStudents)),
		CurrentSlot:          CurrentSlot(snap, now),
		NextSlot:             NextSlotAfter(snap, now),
	}
	return live, nil
}

// StudentHistory classifies each day of [from, to] for a student. Empty
// bounds default to the last constants.DefaultHistoryDays days.
func (q *QueryService) StudentHistory(ctx context.Context, studentID int64, from, to string) (*StudentHistory, error) {
	today := q.now().In(q.loc)
	end, err := q.dateOrDefault(to, today)
	if err != nil {
		return nil, err
	}
	start, err := q.dateOrDefault(from, end.AddDate(0, 0, -(constants.DefaultHistoryDays-1)))
	if err != nil {
		return nil, err
	}
	if end.Before(start) || end.Sub(start) > constants.MaxHistoryDays*24*time.Hour {
		return nil, &InvalidRangeError{Start: database.FormatDate(start), End: database.FormatDate(end)}
	}
	from, to = database.FormatDate(start), database.FormatDate(end)

	student, err := q.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeError("get student", err)
	}
	if student == nil {
		return nil, &StudentNotFoundError{StudentID: studentID}
	}

	marks, err := q.marks.ListMarksByStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, storeError("list marks", err)
	}
	holidays, err := q.holidays.ListHolidays(ctx, from, to)
	if err != nil {
		return nil, storeError("list holidays", err)
	}

	markedByDay := make(map[string][]string)
	for _, m := range marks {
		markedByDay[m.Date] = append(markedByDay[m.Date], m.SlotID)
	}
	holidayByDay := make(map[string]string, len(holidays))
	for _, h := range holidays {
		holidayByDay[h.Date] = h.Name
	}

	snap := q.catalog.Snapshot()
	configured := snap.Len()
	todayDate := database.FormatDate(today)

	history := &StudentHistory{Student: *student, From: from, To: to}
	var weighted float64
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := database.FormatDate(day)
		marked := markedByDay[date]
		sort.Strings(marked)
		entry := HistoryDay{
			Date:        date,
			Weekday:     day.Weekday().String(),
			MarkedSlots: append([]string{}, marked...),
		}

		switch name, isHoliday := holidayByDay[date]; {
		case isHoliday:
			entry.Status = DayHoliday
			entry.Holiday = name
			history.Statistics.HolidayDays++
		case !q.workingDays.IsWorking(day):
			entry.Status = DayNonWorking
			history.Statistics.NonWorkingDays++
		case date > todayDate:
			entry.Status = DayUpcoming
		default:
			history.Statistics.WorkingDays++
			counted := countConfigured(snap, marked)
			switch {
			case configured == 0 && len(marked) > 0, configured > 0 && counted >= configured:
				entry.Status = DayFull
				history.Statistics.FullDays++
				weighted++
			case counted > 0:
				entry.Status = DayPartial
				history.Statistics.PartialDays++
				weighted += float64(counted) / float64(configured)
			default:
				entry.Status = DayAbsent
				history.Statistics.AbsentDays++
			}
		}
		history.Days = append(history.Days, entry)
	}

	stats := &history.Statistics
	stats.FullDayPercentage = percentage(float64(stats.FullDays), float64(stats.WorkingDays))
	stats.SlotWeightedPercentage = percentage(weighted, float64(stats.WorkingDays))
	return history, nil
}

// SlotBreakdown lists the students marked in each slot of date. Catalog slots
// come first in catalog order, followed by slots that have since been deactivated.
func (q *QueryService) SlotBreakdown(ctx context.Context, date string) ([]SlotBreakdownItem, error) {
	if _, err := database.ParseDate(date, q.loc); err != nil {
		return nil, &InvalidDateError{Value: date}
	}
	marks, err := q.marks.ListMarksByDate(ctx, date)
	if err != nil {
		return nil, storeError("list marks", err)
	}

	bySlot := make(map[string][]database.AttendanceMark)
	for _, m := range marks {
		bySlot[m.SlotID] = append(bySlot[m.SlotID], m)
	}

	snap := q.catalog.Snapshot()
	items := make([]SlotBreakdownItem, 0, snap.Len()+len(bySlot))
	for _, slot := range snap.Slots {
		items = append(items, SlotBreakdownItem{SlotID: slot.SlotID, DisplayName: slot.DisplayName, Active: true})
	}
	var retired []string
	for slotID := range bySlot {
		if _, ok := snap.Lookup(slotID); !ok {
			retired = append(retired, slotID)
		}
	}
	sort.Strings(retired)
	for _, slotID := range retired {
		items = append(items, SlotBreakdownItem{SlotID: slotID, DisplayName: DefaultDisplayName(slotID)})
	}

	students := make(map[int64]*database.Student)
	for i := range items {
		slotMarks := bySlot[items[i].SlotID]
		sort.SliceStable(slotMarks, func(a, b int) bool {
			return slotMarks[a].MarkedAt.Before(slotMarks[b].MarkedAt)
		})
		items[i].Students = make([]BreakdownEntry, 0, len(slotMarks))
		for _, m := range slotMarks {
			student, ok := students[m.StudentID]
			if !ok {
				if student, err = q.students.GetStudent(ctx, m.StudentID); err != nil {
					return nil, storeError("get student", err)
				}
				students[m.StudentID] = student
			}
			entry := BreakdownEntry{
				StudentID:    m.StudentID,
				MarkedAt:     m.MarkedAt,
				Confidence:   m.Confidence,
				IsManual:     m.IsManual,
				ManualReason: m.ManualReason,
			}
			if student != nil {
				entry.StudentCode = student.Code
				entry.StudentName = student.Name
			}
			items[i].Students = append(items[i].Students, entry)
		}
		items[i].Count = len(items[i].Students)
	}
	return items, nil
}

func (q *QueryService) dateOrDefault(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := fallback.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, q.loc), nil
	}
	day, err := database.ParseDate(value, q.loc)
	if err != nil {
		return time.Time{}, &InvalidDateError{Value: value}
	}
	return day, nil
}

func countConfigured(snap *Snapshot, marked []string) int {
	n := 0
	for _, slotID := range marked {
		if _, ok := snap.Lookup(slotID); ok {
			n++
		}
	}
	return n
}

// percentage returns part/total*100 rounded to one decimal, 0 for an empty total.
func percentage(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(part/total*1000) / 10
}
