package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/attendance/internal/database"
)

// HolidayRepository provides PostgreSQL-backed holiday storage
type HolidayRepository struct {
	pool *Pool
}

// NewHolidayRepository creates a new PostgreSQL holiday repository
func NewHolidayRepository(pool *Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

// GetHoliday returns the holiday on date, nil if it is a regular day
func (r *HolidayRepository) GetHoliday(ctx context.Context, date string) (*database.Holiday, error) {
	var h database.Holiday
	err := r.pool.QueryRow(ctx,
		"SELECT id, date::text, name, type, created_at FROM holidays WHERE date = $1", date,
	).Scan(&h.ID, &h.Date, &h.Name, &h.Type, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holiday: %w", err)
	}
	return &h, nil
}

// ListHolidays returns holidays in the inclusive range ordered by date
func (r *HolidayRepository) ListHolidays(ctx context.Context, from, to string) ([]database.Holiday, error) {
	var conditions []string
	var args []any
	if from != "" {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := "SELECT id, date::text, name, type, created_at FROM holidays"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []database.Holiday
	for rows.Next() {
		var h database.Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Type, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holidays: %w", err)
	}
	return holidays, nil
}

// AddHoliday stores a holiday, ErrConflict if the date already has one
func (r *HolidayRepository) AddHoliday(ctx context.Context, holiday *database.Holiday) error {
	err := r.pool.QueryRow(ctx,
		"INSERT INTO holidays (date, name, type) VALUES ($1, $2, $3) RETURNING id, created_at",
		holiday.Date, holiday.Name, holiday.Type,
	).Scan(&holiday.ID, &holiday.CreatedAt)
	if isUniqueViolation(err, "") {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add holiday: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return rowsAffected(res)
}
