package attendance

import (
	"context"
	"log"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// Projector derives daily summaries from the marks table. The summary of a
// day is a pure function of that day's marks and the active student count.
type Projector struct {
	marks     database.MarkStore
	summaries database.SummaryStore
	students  database.StudentDirectory
}

// NewProjector creates a projector.
func NewProjector(marks database.MarkStore, summaries database.SummaryStore, students database.StudentDirectory) *Projector {
	return &Projector{marks: marks, summaries: summaries, students: students}
}

// Compute builds the summary for date without storing it.
func (p *Projector) Compute(ctx context.Context, date string) (*database.DailySummary, error) {
	marks, err := p.marks.ListMarksByDate(ctx, date)
	if err != nil {
		return nil, storeError("list marks", err)
	}
	total, err := p.students.CountActiveStudents(ctx)
	if err != nil {
		return nil, storeError("count students", err)
	}
	return summarize(date, total, marks), nil
}

// summaryFunc returns the projection the store applies to the day's marks
// inside the mark transaction.
func (p *Projector) summaryFunc(ctx context.Context, date string) (database.SummaryFunc, error) {
	total, err := p.students.CountActiveStudents(ctx)
	if err != nil {
		return nil, storeError("count students", err)
	}
	return func(marks []database.AttendanceMark) *database.DailySummary {
		return summarize(date, total, marks)
	}, nil
}

func summarize(date string, total int, marks []database.AttendanceMark) *database.DailySummary {
	perSlot := make(map[string]map[int64]struct{})
	present := make(map[int64]struct{})
	for _, m := range marks {
		if perSlot[m.SlotID] == nil {
			perSlot[m.SlotID] = make(map[int64]struct{})
		}
		perSlot[m.SlotID][m.StudentID] = struct{}{}
		present[m.StudentID] = struct{}{}
	}

	summary := &database.DailySummary{
		Date:           date,
		TotalStudents:  total,
		PresentPerSlot: make(map[string]int, len(perSlot)),
		TotalPresent:   len(present),
	}
	for slotID, students := range perSlot {
		summary.PresentPerSlot[slotID] = len(students)
	}
	return summary
}

// Recompute rebuilds and stores the summary for date. Repeating it without
// new marks writes the same summary.
func (p *Projector) Recompute(ctx context.Context, date string) (*database.DailySummary, error) {
	summary, err := p.Compute(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := p.summaries.SaveSummary(ctx, summary); err != nil {
		return nil, storeError("save summary", err)
	}
	return summary, nil
}

// RebuildRange recomputes every day in [from, to]. progress, if set, is called after each day.
func (p *Projector) RebuildRange(ctx context.Context, from, to time.Time, progress func(date string)) (int, error) {
	if to.Before(from) {
		return 0, &InvalidRangeError{Start: database.FormatDate(from), End: database.FormatDate(to)}
	}
	count := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		date := database.FormatDate(day)
		if _, err := p.Recompute(ctx, date); err != nil {
			return count, err
		}
		count++
		if progress != nil {
			progress(date)
		}
	}
	log.Printf("Rebuilt %d daily summaries (%s to %s)", count, database.FormatDate(from), database.FormatDate(to))
	return count, nil
}
