package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// markUniqueConstraint is the (student_id, date, slot_id) constraint name.
const markUniqueConstraint = "attendance_marks_student_date_slot_key"

// MarkRepository provides PostgreSQL-backed attendance mark storage
type MarkRepository struct {
	pool *Pool
}

// NewMarkRepository creates a new PostgreSQL mark repository
func NewMarkRepository(pool *Pool) *MarkRepository {
	return &MarkRepository{pool: pool}
}

const markColumns = `id, student_id, date::text, slot_id, marked_at, confidence, is_manual, manual_reason`

// InsertMark stores a mark and, when project is set, the summary of its day
// in one transaction. The unique constraint decides between concurrent
// writers of a triple; a per-date advisory lock orders summary rebuilds so
// the last committed summary sees every committed mark of the day.
func (r *MarkRepository) InsertMark(ctx context.Context, mark *database.AttendanceMark, project database.SummaryFunc) (*database.DailySummary, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('attendance_day:' || $1))`, mark.Date); err != nil {
		return nil, fmt.Errorf("lock day: %w", err)
	}

	query := `
		INSERT INTO attendance_marks (student_id, date, slot_id, marked_at, confidence, is_manual, manual_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err = tx.QueryRowContext(ctx, query,
		mark.StudentID, mark.Date, mark.SlotID, mark.MarkedAt, mark.Confidence, mark.IsManual, mark.ManualReason,
	).Scan(&id)
	if isUniqueViolation(err, markUniqueConstraint) {
		return nil, database.ErrDuplicateMark
	}
	if err != nil {
		return nil, fmt.Errorf("insert mark: %w", err)
	}

	var summary *database.DailySummary
	if project != nil {
		marks, err := listMarks(ctx, tx, `SELECT `+markColumns+`
			FROM attendance_marks
			WHERE date = $1
			ORDER BY slot_id, marked_at
		`, mark.Date)
		if err != nil {
			return nil, err
		}
		summary = project(marks)
		if err := upsertSummary(ctx, tx, summary); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mark: %w", err)
	}
	mark.ID = id
	return summary, nil
}

// GetMark returns the mark for the triple, nil if absent
func (r *MarkRepository) GetMark(ctx context.Context, studentID int64, date, slotID string) (*database.AttendanceMark, error) {
	query := `SELECT ` + markColumns + `
		FROM attendance_marks
		WHERE student_id = $1 AND date = $2 AND slot_id = $3
	`

	mark, err := scanMark(r.pool.QueryRow(ctx, query, studentID, date, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mark: %w", err)
	}
	return mark, nil
}

// ListMarksByDate returns the marks of a day ordered by slot and mark time
func (r *MarkRepository) ListMarksByDate(ctx context.Context, date string) ([]database.AttendanceMark, error) {
	query := `SELECT ` + markColumns + `
		FROM attendance_marks
		WHERE date = $1
		ORDER BY slot_id, marked_at
	`
	return listMarks(ctx, r.pool.DB(), query, date)
}

// ListMarksByStudent returns a student's marks within the inclusive range
func (r *MarkRepository) ListMarksByStudent(ctx context.Context, studentID int64, from, to string) ([]database.AttendanceMark, error) {
	query := `SELECT ` + markColumns + `
		FROM attendance_marks
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, marked_at
	`
	return listMarks(ctx, r.pool.DB(), query, studentID, from, to)
}

func listMarks(ctx context.Context, q querier, query string, args ...any) ([]database.AttendanceMark, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	defer rows.Close()

	var marks []database.AttendanceMark
	for rows.Next() {
		mark, err := scanMark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mark: %w", err)
		}
		marks = append(marks, *mark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marks: %w", err)
	}
	return marks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMark(row rowScanner) (*database.AttendanceMark, error) {
	var m database.AttendanceMark
	var confidence sql.NullFloat64
	if err := row.Scan(&m.ID, &m.StudentID, &m.Date, &m.SlotID, &m.MarkedAt, &confidence, &m.IsManual, &m.ManualReason); err != nil {
		return nil, err
	}
	if confidence.Valid {
		m.Confidence = &confidence.Float64
	}
	return &m, nil
}
