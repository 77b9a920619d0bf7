package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/mock"
)

var testLoc = time.UTC

// at builds a campus-local instant, e.g. at("2026-10-19", "09:00").
func at(date, clock string) time.Time {
	day, err := database.ParseDate(date, testLoc)
	if err != nil {
		panic(err)
	}
	return database.MustParseTimeOfDay(clock).On(day)
}

func slotDef(id, name, start, end string) database.SlotDefinition {
	return database.SlotDefinition{
		SlotID:      id,
		DisplayName: name,
		StartTime:   database.MustParseTimeOfDay(start),
		EndTime:     database.MustParseTimeOfDay(end),
		IsActive:    true,
	}
}

var (
	morningSlot   = slotDef("morning", "Morning Session", "08:45", "09:30")
	afternoonSlot = slotDef("afternoon", "Afternoon Session", "13:45", "14:30")
)

type fixture struct {
	store     *mock.MockStore
	catalog   *Catalog
	projector *Projector
	ledger    *Ledger
	query     *QueryService
	service   *Service
}

// newFixture wires the components over a mock store holding the default
// slots, two active students (1, 2) and one inactive student (3).
func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	store := mock.NewMockStore()
	store.AddSlot(morningSlot)
	store.AddSlot(afternoonSlot)
	store.AddStudent(database.Student{ID: 1, Code: "S001", Name: "Alice Novak"})
	store.AddStudent(database.Student{ID: 2, Code: "S002", Name: "Bob Dvorak"})
	store.AddStudent(database.Student{ID: 3, Code: "S003", Name: "Carol Svoboda", Status: database.StudentStatusInactive})

	clock := func() time.Time { return now }

	catalog := NewCatalog(store, nil)
	catalog.now = clock
	if _, err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	projector := NewProjector(store, store, store)

	ledger := NewLedger(catalog, store, store, store, projector, testLoc)
	ledger.now = clock

	workingDays, err := ParseWorkingDays("mon,tue,wed,thu,fri,sat")
	if err != nil {
		t.Fatalf("failed to parse working days: %v", err)
	}
	query := NewQueryService(catalog, store, store, projector, workingDays, testLoc)
	query.now = clock

	service := NewService(catalog, ledger, projector, query, testLoc)
	service.now = clock

	return &fixture{
		store:     store,
		catalog:   catalog,
		projector: projector,
		ledger:    ledger,
		query:     query,
		service:   service,
	}
}
