package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// SummaryRepository provides PostgreSQL-backed daily summary storage
type SummaryRepository struct {
	pool *Pool
}

// NewSummaryRepository creates a new PostgreSQL summary repository
func NewSummaryRepository(pool *Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// SaveSummary upserts the summary of its date
func (r *SummaryRepository) SaveSummary(ctx context.Context, summary *database.DailySummary) error {
	return upsertSummary(ctx, r.pool.DB(), summary)
}

func upsertSummary(ctx context.Context, q querier, summary *database.DailySummary) error {
	perSlot, err := json.Marshal(summary.PresentPerSlot)
	if err != nil {
		return fmt.Errorf("marshal per-slot counts: %w", err)
	}

	query := `
		INSERT INTO daily_summaries (date, total_students, present_per_slot, total_present, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (date) DO UPDATE SET
			total_students = EXCLUDED.total_students,
			present_per_slot = EXCLUDED.present_per_slot,
			total_present = EXCLUDED.total_present,
			updated_at = NOW()
	`

	// jsonb is sent as text; []byte would be encoded as bytea.
	if _, err := q.ExecContext(ctx, query, summary.Date, summary.TotalStudents, string(perSlot), summary.TotalPresent); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// GetSummary returns the stored summary, nil if none was computed
func (r *SummaryRepository) GetSummary(ctx context.Context, date string) (*database.DailySummary, error) {
	query := `
		SELECT date::text, total_students, present_per_slot, total_present
		FROM daily_summaries
		WHERE date = $1
	`

	var s database.DailySummary
	var perSlot []byte
	err := r.pool.QueryRow(ctx, query, date).Scan(&s.Date, &s.TotalStudents, &perSlot, &s.TotalPresent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if err := json.Unmarshal(perSlot, &s.PresentPerSlot); err != nil {
		return nil, fmt.Errorf("unmarshal per-slot counts: %w", err)
	}
	if s.PresentPerSlot == nil {
		s.PresentPerSlot = map[string]int{}
	}
	return &s, nil
}
