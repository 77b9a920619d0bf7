package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// StudentRepository provides the local PostgreSQL student directory
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetStudent returns the student, nil if unknown
func (r *StudentRepository) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	var s database.Student
	err := r.pool.QueryRow(ctx,
		"SELECT id, code, name, email, status FROM students WHERE id = $1", id,
	).Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// CountActiveStudents returns the number of active students
func (r *StudentRepository) CountActiveStudents(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students WHERE status = $1", database.StudentStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// ListActiveStudents returns the active students ordered by name
func (r *StudentRepository) ListActiveStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, code, name, email, status FROM students WHERE status = $1 ORDER BY name, id",
		database.StudentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Email, &s.Status); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// SaveStudent inserts a student (zero ID) or updates an existing one
func (r *StudentRepository) SaveStudent(ctx context.Context, student *database.Student) error {
	if student.Status == "" {
		student.Status = database.StudentStatusActive
	}

	var err error
	if student.ID == 0 {
		err = r.pool.QueryRow(ctx,
			"INSERT INTO students (code, name, email, status) VALUES ($1, $2, $3, $4) RETURNING id",
			student.Code, student.Name, student.Email, student.Status,
		).Scan(&student.ID)
	} else {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO students (id, code, name, email, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				code = EXCLUDED.code,
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				status = EXCLUDED.status
		`, student.ID, student.Code, student.Name, student.Email, student.Status)
		if err == nil {
			// Keep the sequence ahead of explicitly imported ids.
			_, err = r.pool.Exec(ctx,
				"SELECT setval(pg_get_serial_sequence('students', 'id'), GREATEST((SELECT MAX(id) FROM students), 1))")
		}
	}
	if isUniqueViolation(err, "students_code_key") {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}
