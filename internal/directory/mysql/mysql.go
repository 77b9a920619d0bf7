// Package mysql reads students from an external MariaDB/MySQL student directory.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/attendance/internal/database"
)

// Directory is a read-only student directory backed by a MariaDB connection pool.
type Directory struct {
	db *sql.DB
}

var _ database.StudentDirectory = (*Directory)(nil)

// NormalizeDSN validates dsn and forces the options the directory relies on.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("student directory DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse student directory DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg.FormatDSN(), nil
}

// New opens the directory and verifies the connection.
func New(ctx context.Context, dsn string) (*Directory, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to open student directory: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping student directory: %w", err)
	}

	return &Directory{db: db}, nil
}

// Close closes the connection pool.
func (d *Directory) Close() error {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			return fmt.Errorf("closing student directory connection: %w", err)
		}
	}
	return nil
}

// GetStudent returns the student, nil if unknown
func (d *Directory) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	var s database.Student
	var email sql.NullString
	err := d.db.QueryRowContext(ctx,
		"SELECT id, student_code, full_name, email, status FROM students WHERE id = ?", id,
	).Scan(&s.ID, &s.Code, &s.Name, &email, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	s.Email = email.String
	return &s, nil
}

// CountActiveStudents returns the number of active students
func (d *Directory) CountActiveStudents(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE status = ?", database.StudentStatusActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// ListActiveStudents returns the active students ordered by name
func (d *Directory) ListActiveStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, student_code, full_name, email, status
		FROM students
		WHERE status = ?
		ORDER BY full_name, id
	`, database.StudentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		var email sql.NullString
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &email, &s.Status); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.Email = email.String
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return students, nil
}
