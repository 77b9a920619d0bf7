package attendance

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kozaktomas/attendance/internal/database"
)

func addMark(f *fixture, studentID int64, date, slotID, clock string) {
	confidence := 0.9
	f.store.AddMark(database.AttendanceMark{
		StudentID:  studentID,
		Date:       date,
		SlotID:     slotID,
		MarkedAt:   at(date, clock),
		Confidence: &confidence,
	})
}

func TestProjector_Compute(t *testing.T) {
	f := newFixture(t, at("2026-10-19", "15:00"))
	addMark(f, 1, "2026-10-19", "morning", "09:00")
	addMark(f, 1, "2026-10-19", "afternoon", "14:00")
	addMark(f, 2, "2026-10-19", "afternoon", "14:05")
	addMark(f, 2, "2026-10-18", "morning", "09:00")

	summary, err := f.projector.Compute(context.Background(), "2026-10-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := &database.DailySummary{
		Date:           "2026-10-19",
		TotalStudents:  2,
		PresentPerSlot: map[string]int{"morning": 1, "afternoon": 2},
		TotalPresent:   2,
	}
	if !reflect.DeepEqual(summary, expected) {
		t.Errorf("expected %+v, got %+v", expected, summary)
	}
	if f.store.SaveSummaryCalls != 0 {
		t.Error("Compute must not store the summary")
	}
}

func TestProjector_ComputeEmptyDay(t *testing.T) {
	f := newFixture(t, at("2026-10-19", "15:00"))

	summary, err := f.projector.Compute(context.Background(), "2026-10-20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalPresent != 0 || len(summary.PresentPerSlot) != 0 || summary.PresentPerSlot == nil {
		t.Errorf("expected empty non-nil summary, got %+v", summary)
	}
}

func TestProjector_RecomputeIdempotent(t *testing.T) {
	f := newFixture(t, at("2026-10-19", "15:00"))
	addMark(f, 1, "2026-10-19", "morning", "09:00")
	addMark(f, 2, "2026-10-19", "morning", "09:01")
	ctx := context.Background()

	first, err := f.projector.Recompute(ctx, "2026-10-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	storedFirst, _ := f.store.GetSummary(ctx, "2026-10-19")

	second, err := f.projector.Recompute(ctx, "2026-10-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	storedSecond, _ := f.store.GetSummary(ctx, "2026-10-19")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical summaries, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(storedFirst, storedSecond) {
		t.Errorf("expected identical stored summaries, got %+v and %+v", storedFirst, storedSecond)
	}
	if f.store.SaveSummaryCalls != 2 {
		t.Errorf("expected 2 saves, got %d", f.store.SaveSummaryCalls)
	}
}

func TestProjector_RecomputeStoreUnavailable(t *testing.T) {
	f := newFixture(t, at("2026-10-19", "15:00"))
	f.store.ListMarksError = errors.New("connection refused")

	if _, err := f.projector.Recompute(context.Background(), "2026-10-19"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestProjector_RebuildRange(t *testing.T) {
	f := newFixture(t, at("2026-10-21", "15:00"))
	addMark(f, 1, "2026-10-20", "morning", "09:00")

	var seen []string
	count, err := f.projector.RebuildRange(context.Background(), at("2026-10-19", "00:00"), at("2026-10-21", "00:00"),
		func(date string) { seen = append(seen, date) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 days rebuilt, got %d", count)
	}
	if !reflect.DeepEqual(seen, []string{"2026-10-19", "2026-10-20", "2026-10-21"}) {
		t.Errorf("unexpected progress calls: %v", seen)
	}
	summary, _ := f.store.GetSummary(context.Background(), "2026-10-20")
	if summary == nil || summary.TotalPresent != 1 {
		t.Errorf("expected rebuilt summary for 2026-10-20, got %+v", summary)
	}

	_, err = f.projector.RebuildRange(context.Background(), at("2026-10-21", "00:00"), at("2026-10-19", "00:00"), nil)
	var invalid *InvalidRangeError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidRangeError, got %v", err)
	}
}
