// Package sqlite is a single-instance attendance store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/kozaktomas/attendance/internal/database"
)

//go:embed schema.sql
var schema string

// Store handles database operations
type Store struct {
	db *sql.DB
}

var _ database.Store = (*Store)(nil)

// New opens the database at path and initialises the schema. Writers are
// serialised through a single connection.
func New(path string) (*Store, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_busy_timeout=5000&_txlock=immediate"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Open opens a sqlite:// or file: URL.
func Open(ctx context.Context, url string) (database.Store, error) {
	path := strings.TrimPrefix(url, "sqlite://")
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	return New(path)
}

// Register makes sqlite:// and file: URLs openable through database.Open.
func Register() {
	database.RegisterBackend(Open, "sqlite", "sqlite3", "file")
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListSlots returns slots ordered by start time
func (s *Store) ListSlots(ctx context.Context, includeInactive bool) ([]database.SlotDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot_id, display_name, start_time, end_time, is_active, updated_at
		FROM attendance_slots
		WHERE is_active = 1 OR ?
		ORDER BY start_time, slot_id
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []database.SlotDefinition
	for rows.Next() {
		var slot database.SlotDefinition
		var start, end string
		if err := rows.Scan(&slot.SlotID, &slot.DisplayName, &start, &end, &slot.IsActive, &slot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if slot.StartTime, err = database.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.SlotID, err)
		}
		if slot.EndTime, err = database.ParseTimeOfDay(end); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.SlotID, err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// CountSlots returns the number of slots ever configured
func (s *Store) CountSlots(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance_slots").Scan(&count); err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return count, nil
}

// CreateSlot inserts a new slot
func (s *Store) CreateSlot(ctx context.Context, slot *database.SlotDefinition) error {
	slot.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_slots (slot_id, display_name, start_time, end_time, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, slot.SlotID, slot.DisplayName, slot.StartTime.Clock(), slot.EndTime.Clock(), slot.IsActive, slot.UpdatedAt)
	if isUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// UpdateSlotTimes changes the window of an active slot
func (s *Store) UpdateSlotTimes(ctx context.Context, slotID string, start, end database.TimeOfDay) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_slots SET start_time = ?, end_time = ?, updated_at = ?
		WHERE slot_id = ? AND is_active = 1
	`, start.Clock(), end.Clock(), time.Now().UTC(), slotID)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return rowsAffected(res)
}

// SetSlotActive activates or deactivates a slot
func (s *Store) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attendance_slots SET is_active = ?, updated_at = ? WHERE slot_id = ?",
		active, time.Now().UTC(), slotID)
	if err != nil {
		return fmt.Errorf("set slot active: %w", err)
	}
	return rowsAffected(res)
}

const markColumns = "id, student_id, date, slot_id, marked_at, confidence, is_manual, manual_reason"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// InsertMark stores a mark and, when project is set, the summary of its day
// in one immediate transaction. The UNIQUE (student_id, date, slot_id)
// constraint rejects duplicates.
func (s *Store) InsertMark(ctx context.Context, mark *database.AttendanceMark, project database.SummaryFunc) (*database.DailySummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_marks (student_id, date, slot_id, marked_at, confidence, is_manual, manual_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, mark.StudentID, mark.Date, mark.SlotID, mark.MarkedAt, mark.Confidence, mark.IsManual, mark.ManualReason)
	if isUniqueViolation(err) {
		return nil, database.ErrDuplicateMark
	}
	if err != nil {
		return nil, fmt.Errorf("insert mark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("mark id: %w", err)
	}

	var summary *database.DailySummary
	if project != nil {
		marks, err := listMarks(ctx, tx, marksByDateQuery, mark.Date)
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
func (s *Store) GetMark(ctx context.Context, studentID int64, date, slotID string) (*database.AttendanceMark, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+markColumns+" FROM attendance_marks WHERE student_id = ? AND date = ? AND slot_id = ?",
		studentID, date, slotID)
	mark, err := scanMark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mark: %w", err)
	}
	return mark, nil
}

const marksByDateQuery = "SELECT " + markColumns + " FROM attendance_marks WHERE date = ? ORDER BY slot_id, marked_at"

// ListMarksByDate returns the marks of a day ordered by slot and mark time
func (s *Store) ListMarksByDate(ctx context.Context, date string) ([]database.AttendanceMark, error) {
	return listMarks(ctx, s.db, marksByDateQuery, date)
}

// ListMarksByStudent returns a student's marks within the inclusive range
func (s *Store) ListMarksByStudent(ctx context.Context, studentID int64, from, to string) ([]database.AttendanceMark, error) {
	return listMarks(ctx, s.db,
		"SELECT "+markColumns+" FROM attendance_marks WHERE student_id = ? AND date BETWEEN ? AND ? ORDER BY date, marked_at",
		studentID, from, to)
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

func scanMark(row interface{ Scan(...any) error }) (*database.AttendanceMark, error) {
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

// SaveSummary upserts the summary of its date
func (s *Store) SaveSummary(ctx context.Context, summary *database.DailySummary) error {
	return upsertSummary(ctx, s.db, summary)
}

func upsertSummary(ctx context.Context, q querier, summary *database.DailySummary) error {
	perSlot, err := json.Marshal(summary.PresentPerSlot)
	if err != nil {
		return fmt.Errorf("marshal per-slot counts: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO daily_summaries (date, total_students, present_per_slot, total_present, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			total_students = excluded.total_students,
			present_per_slot = excluded.present_per_slot,
			total_present = excluded.total_present,
			updated_at = excluded.updated_at
	`, summary.Date, summary.TotalStudents, string(perSlot), summary.TotalPresent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// GetSummary returns the stored summary, nil if none was computed
func (s *Store) GetSummary(ctx context.Context, date string) (*database.DailySummary, error) {
	var summary database.DailySummary
	var perSlot string
	err := s.db.QueryRowContext(ctx,
		"SELECT date, total_students, present_per_slot, total_present FROM daily_summaries WHERE date = ?", date,
	).Scan(&summary.Date, &summary.TotalStudents, &perSlot, &summary.TotalPresent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if err := json.Unmarshal([]byte(perSlot), &summary.PresentPerSlot); err != nil {
		return nil, fmt.Errorf("unmarshal per-slot counts: %w", err)
	}
	if summary.PresentPerSlot == nil {
		summary.PresentPerSlot = map[string]int{}
	}
	return &summary, nil
}

// GetHoliday returns the holiday on date, nil if it is a regular day
func (s *Store) GetHoliday(ctx context.Context, date string) (*database.Holiday, error) {
	var h database.Holiday
	err := s.db.QueryRowContext(ctx,
		"SELECT id, date, name, type, created_at FROM holidays WHERE date = ?", date,
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
func (s *Store) ListHolidays(ctx context.Context, from, to string) ([]database.Holiday, error) {
	if to == "" {
		to = "9999-12-31"
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, name, type, created_at FROM holidays WHERE date >= ? AND date <= ? ORDER BY date", from, to)
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
func (s *Store) AddHoliday(ctx context.Context, holiday *database.Holiday) error {
	holiday.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO holidays (date, name, type, created_at) VALUES (?, ?, ?, ?)",
		holiday.Date, holiday.Name, holiday.Type, holiday.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add holiday: %w", err)
	}
	if holiday.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("holiday id: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday
func (s *Store) DeleteHoliday(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return rowsAffected(res)
}

// GetStudent returns the student, nil if unknown
func (s *Store) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	var st database.Student
	err := s.db.QueryRowContext(ctx,
		"SELECT id, code, name, email, status FROM students WHERE id = ?", id,
	).Scan(&st.ID, &st.Code, &st.Name, &st.Email, &st.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

// CountActiveStudents returns the number of active students
func (s *Store) CountActiveStudents(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students WHERE status = ?", database.StudentStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// ListActiveStudents returns the active students ordered by name
func (s *Store) ListActiveStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, email, status FROM students WHERE status = ? ORDER BY name, id", database.StudentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var st database.Student
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.Email, &st.Status); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// SaveStudent inserts a student (zero ID) or updates an existing one
func (s *Store) SaveStudent(ctx context.Context, student *database.Student) error {
	if student.Status == "" {
		student.Status = database.StudentStatusActive
	}
	if student.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO students (code, name, email, status) VALUES (?, ?, ?, ?)",
			student.Code, student.Name, student.Email, student.Status)
		if isUniqueViolation(err) {
			return database.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("save student: %w", err)
		}
		if student.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("student id: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, code, name, email, status) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			code = excluded.code, name = excluded.name, email = excluded.email, status = excluded.status
	`, student.ID, student.Code, student.Name, student.Email, student.Status)
	if isUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}

// SaveEmbedding stores an enrolled face embedding
func (s *Store) SaveEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	vec, err := json.Marshal(emb.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	emb.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO student_embeddings (student_id, embedding, quality, created_at) VALUES (?, ?, ?, ?)",
		emb.StudentID, string(vec), emb.Quality, emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	if emb.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("embedding id: %w", err)
	}
	return nil
}

// ListEmbeddings returns all enrolled embeddings
func (s *Store) ListEmbeddings(ctx context.Context) ([]database.StoredEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, student_id, embedding, quality, created_at FROM student_embeddings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []database.StoredEmbedding
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec string
		if err := rows.Scan(&emb.ID, &emb.StudentID, &vec, &emb.Quality, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(vec), &emb.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding %d: %w", emb.ID, err)
		}
		embeddings = append(embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}

// CountEmbeddings returns the number of enrolled embeddings
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM student_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}
