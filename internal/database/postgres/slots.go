package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// SlotRepository provides PostgreSQL-backed slot catalog storage
type SlotRepository struct {
	pool *Pool
}

// NewSlotRepository creates a new PostgreSQL slot repository
func NewSlotRepository(pool *Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// ListSlots returns slots ordered by start time
func (r *SlotRepository) ListSlots(ctx context.Context, includeInactive bool) ([]database.SlotDefinition, error) {
	query := `
		SELECT slot_id, display_name, start_time::text, end_time::text, is_active, updated_at
		FROM attendance_slots
		WHERE is_active OR $1
		ORDER BY start_time, slot_id
	`

	rows, err := r.pool.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []database.SlotDefinition
	for rows.Next() {
		var s database.SlotDefinition
		var start, end string
		if err := rows.Scan(&s.SlotID, &s.DisplayName, &start, &end, &s.IsActive, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if s.StartTime, err = database.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("slot %s: %w", s.SlotID, err)
		}
		if s.EndTime, err = database.ParseTimeOfDay(end); err != nil {
			return nil, fmt.Errorf("slot %s: %w", s.SlotID, err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// CountSlots returns the number of slots ever configured
func (r *SlotRepository) CountSlots(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_slots").Scan(&count); err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return count, nil
}

// CreateSlot inserts a new slot
func (r *SlotRepository) CreateSlot(ctx context.Context, slot *database.SlotDefinition) error {
	query := `
		INSERT INTO attendance_slots (slot_id, display_name, start_time, end_time, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		slot.SlotID, slot.DisplayName, slot.StartTime.Clock(), slot.EndTime.Clock(), slot.IsActive,
	).Scan(&slot.UpdatedAt)
	if isUniqueViolation(err, "") {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// UpdateSlotTimes changes the window of an active slot
func (r *SlotRepository) UpdateSlotTimes(ctx context.Context, slotID string, start, end database.TimeOfDay) error {
	query := `
		UPDATE attendance_slots
		SET start_time = $2, end_time = $3, updated_at = NOW()
		WHERE slot_id = $1 AND is_active
	`

	res, err := r.pool.Exec(ctx, query, slotID, start.Clock(), end.Clock())
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return rowsAffected(res)
}

// SetSlotActive activates or deactivates a slot
func (r *SlotRepository) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	res, err := r.pool.Exec(ctx,
		"UPDATE attendance_slots SET is_active = $2, updated_at = NOW() WHERE slot_id = $1", slotID, active)
	if err != nil {
		return fmt.Errorf("set slot active: %w", err)
	}
	return rowsAffected(res)
}
