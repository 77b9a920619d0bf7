package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// DuplicateSlotError is returned when creating a slot whose id is already configured.
type DuplicateSlotError struct {
	SlotID string
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("slot %s already exists", e.SlotID)
}

// Catalog holds the configured attendance windows. Readers get an immutable
// snapshot; Reload swaps it atomically so a partial catalog is never observed.
type Catalog struct {
	store    database.SlotStore
	defaults []database.SlotDefinition
	snap     atomic.Pointer[Snapshot]
	writeMu  sync.Mutex
	now      func() time.Time
}

// NewCatalog creates a catalog. defaults are installed on the first load of an
// empty configuration.
func NewCatalog(store database.SlotStore, defaults []database.SlotDefinition) *Catalog {
	c := &Catalog{
		store:    store,
		defaults: defaults,
		now:      time.Now,
	}
	c.snap.Store(NewSnapshot(nil, time.Time{}))
	return c
}

// Snapshot returns the current catalog view.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Load reads the active slots, installing the default catalog when no slot was ever configured.
func (c *Catalog) Load(ctx context.Context) (*Snapshot, error) {
	count, err := c.store.CountSlots(ctx)
	if err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	if count == 0 && len(c.defaults) > 0 {
		log.Printf("No attendance slots configured, installing %d default slots", len(c.defaults))
		for i := range c.defaults {
			def := c.defaults[i]
			def.IsActive = true
			if err := c.store.CreateSlot(ctx, &def); err != nil && !errors.Is(err, database.ErrConflict) {
				return nil, &ConfigLoadError{Err: fmt.Errorf("install default slot %s: %w", def.SlotID, err)}
			}
		}
	}
	return c.Reload(ctx)
}

// Reload re-reads the active slots and replaces the snapshot.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	slots, err := c.store.ListSlots(ctx, false)
	if err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	snap := NewSnapshot(slots, c.now())
	c.snap.Store(snap)
	return snap, nil
}

// Update changes the window of an active slot.
func (c *Catalog) Update(ctx context.Context, slotID string, start, end database.TimeOfDay) (*Snapshot, error) {
	if start >= end {
		return nil, &InvalidRangeError{Start: start.String(), End: end.String()}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	active, err := c.store.ListSlots(ctx, false)
	if err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	if !containsSlot(active, slotID) {
		return nil, &UnknownSlotError{SlotID: slotID}
	}
	if err := checkOverlap(active, slotID, start, end); err != nil {
		return nil, err
	}

	if err := c.store.UpdateSlotTimes(ctx, slotID, start, end); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &UnknownSlotError{SlotID: slotID}
		}
		return nil, storeError("update slot", err)
	}
	log.Printf("Slot %s updated to %s-%s", slotID, start, end)
	return c.Reload(ctx)
}

// Create adds a new active slot.
func (c *Catalog) Create(ctx context.Context, def database.SlotDefinition) (*Snapshot, error) {
	def.SlotID = strings.ToLower(strings.TrimSpace(def.SlotID))
	if def.SlotID == "" {
		return nil, &UnknownSlotError{SlotID: def.SlotID}
	}
	if def.StartTime >= def.EndTime {
		return nil, &InvalidRangeError{Start: def.StartTime.String(), End: def.EndTime.String()}
	}
	if def.DisplayName == "" {
		def.DisplayName = DefaultDisplayName(def.SlotID)
	}
	def.IsActive = true

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	active, err := c.store.ListSlots(ctx, false)
	if err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	if err := checkOverlap(active, def.SlotID, def.StartTime, def.EndTime); err != nil {
		return nil, err
	}
	if err := c.store.CreateSlot(ctx, &def); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, &DuplicateSlotError{SlotID: def.SlotID}
		}
		return nil, storeError("create slot", err)
	}
	log.Printf("Slot %s created (%s-%s)", def.SlotID, def.StartTime, def.EndTime)
	return c.Reload(ctx)
}

// Deactivate removes a slot from the active catalog. Its marks are kept.
func (c *Catalog) Deactivate(ctx context.Context, slotID string) (*Snapshot, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.store.SetSlotActive(ctx, slotID, false); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &UnknownSlotError{SlotID: slotID}
		}
		return nil, storeError("deactivate slot", err)
	}
	log.Printf("Slot %s deactivated", slotID)
	return c.Reload(ctx)
}

// Activate returns a deactivated slot to the catalog if it fits between the active ones.
func (c *Catalog) Activate(ctx context.Context, slotID string) (*Snapshot, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	all, err := c.store.ListSlots(ctx, true)
	if err != nil {
		return nil, &ConfigLoadError{Err: err}
	}
	var target *database.SlotDefinition
	var active []database.SlotDefinition
	for i := range all {
		if all[i].SlotID == slotID {
			target = &all[i]
		}
		if all[i].IsActive {
			active = append(active, all[i])
		}
	}
	if target == nil {
		return nil, &UnknownSlotError{SlotID: slotID}
	}
	if err := checkOverlap(active, slotID, target.StartTime, target.EndTime); err != nil {
		return nil, err
	}
	if err := c.store.SetSlotActive(ctx, slotID, true); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &UnknownSlotError{SlotID: slotID}
		}
		return nil, storeError("activate slot", err)
	}
	log.Printf("Slot %s activated", slotID)
	return c.Reload(ctx)
}

// Watch reloads the catalog every interval until ctx is done, picking up
// changes written by other instances.
func (c *Catalog) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Reload(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Warning: periodic slot reload failed: %v", err)
			}
		}
	}
}

// DefaultDisplayName derives "Morning Session" from "morning".
func DefaultDisplayName(slotID string) string {
	if slotID == "" {
		return ""
	}
	return strings.ToUpper(slotID[:1]) + slotID[1:] + " Session"
}

func containsSlot(slots []database.SlotDefinition, slotID string) bool {
	for _, s := range slots {
		if s.SlotID == slotID {
			return true
		}
	}
	return false
}

// checkOverlap rejects [start, end) if it intersects any active slot other than slotID.
func checkOverlap(active []database.SlotDefinition, slotID string, start, end database.TimeOfDay) error {
	for i := range active {
		other := active[i]
		if other.SlotID == slotID {
			continue
		}
		if other.Overlaps(start, end) {
			return &OverlapError{SlotID: slotID, Other: other}
		}
	}
	return nil
}
