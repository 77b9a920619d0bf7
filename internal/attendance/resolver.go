package attendance

import (
	"sort"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// Snapshot is an immutable view of the active slot catalog, ordered by start time.
type Snapshot struct {
	Slots    []database.SlotDefinition `json:"slots"`
	LoadedAt time.Time                 `json:"loaded_at"`
}

// NewSnapshot copies and orders slots. Ties on start time keep slot id order.
func NewSnapshot(slots []database.SlotDefinition, loadedAt time.Time) *Snapshot {
	ordered := make([]database.SlotDefinition, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartTime != ordered[j].StartTime {
			return ordered[i].StartTime < ordered[j].StartTime
		}
		return ordered[i].SlotID < ordered[j].SlotID
	})
	return &Snapshot{Slots: ordered, LoadedAt: loadedAt}
}

// Lookup returns the active slot with the id.
func (s *Snapshot) Lookup(slotID string) (database.SlotDefinition, bool) {
	if s == nil {
		return database.SlotDefinition{}, false
	}
	for _, slot := range s.Slots {
		if slot.SlotID == slotID {
			return slot, true
		}
	}
	return database.SlotDefinition{}, false
}

// Len returns the number of active slots.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Slots)
}

// ActiveSlot is the slot containing a point in time.
type ActiveSlot struct {
	Slot          database.SlotDefinition `json:"slot"`
	TimeRemaining int                     `json:"time_remaining_minutes"`
}

// NextSlot is the closest slot still to start today.
type NextSlot struct {
	Slot        database.SlotDefinition `json:"slot"`
	WaitMinutes int                     `json:"wait_minutes"`
}

// CurrentSlot returns the first slot whose inclusive window contains at's time of day.
// Slots are scanned in start order, so the earliest-starting slot wins on overlap.
func CurrentSlot(snap *Snapshot, at time.Time) *ActiveSlot {
	if snap == nil {
		return nil
	}
	tod := database.TimeOfDayOf(at)
	for _, slot := range snap.Slots {
		if slot.Contains(tod) {
			return &ActiveSlot{Slot: slot, TimeRemaining: TimeRemaining(slot, at)}
		}
	}
	return nil
}

// NextSlotAfter returns the slot starting soonest after at, today only.
// Starts are compared to the second; WaitMinutes rounds up, so a slot
// starting later in the same minute reports a wait of 1.
func NextSlotAfter(snap *Snapshot, at time.Time) *NextSlot {
	if snap == nil {
		return nil
	}
	current := database.TimeOfDayOf(at)
	var next *NextSlot
	var nextWait int
	for _, slot := range snap.Slots {
		wait := int(slot.StartTime - current)
		if wait <= 0 {
			continue
		}
		if next == nil || wait < nextWait {
			next = &NextSlot{Slot: slot, WaitMinutes: (wait + 59) / 60}
			nextWait = wait
		}
	}
	return next
}

// TimeRemaining returns the minutes from at until the slot ends, floored at 0.
func TimeRemaining(slot database.SlotDefinition, at time.Time) int {
	return max(0, slot.EndTime.Minutes()-database.TimeOfDayOf(at).Minutes())
}
