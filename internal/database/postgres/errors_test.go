package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	markErr := &pq.Error{Code: "23505", Constraint: markUniqueConstraint}

	tests := []struct {
		name       string
		err        error
		constraint string
		expected   bool
	}{
		{"nil", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"unique any", markErr, "", true},
		{"unique matching constraint", markErr, markUniqueConstraint, true},
		{"unique other constraint", markErr, "students_code_key", false},
		{"wrapped", fmt.Errorf("executing query: %w", markErr), markUniqueConstraint, true},
		{"foreign key", &pq.Error{Code: "23503"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, tt.constraint); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if migrations[0].version != "001_attendance.sql" {
		t.Errorf("expected first migration 001_attendance.sql, got %s", migrations[0].version)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations out of order: %s after %s", migrations[i].version, migrations[i-1].version)
		}
	}
}
