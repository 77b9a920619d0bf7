package directory

import (
	"testing"

	"github.com/kozaktomas/attendance/internal/database"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"  JOHN   DOE ", "john doe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizePersonName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePersonName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	students := []database.Student{
		{ID: 1, Code: "S001", Name: "Alice Nováková"},
		{ID: 2, Code: "S002", Name: "Bob Dvořák"},
		{ID: 3, Code: "S003", Name: "Karel Novák"},
	}

	tests := []struct {
		name     string
		query    string
		limit    int
		expected []int64
	}{
		{"empty query returns all", "", 0, []int64{1, 2, 3}},
		{"diacritics ignored", "dvorak", 0, []int64{2}},
		{"substring of two names", "novak", 0, []int64{1, 3}},
		{"prefix sorts first", "karel", 0, []int64{3}},
		{"all words must match", "alice novak", 0, []int64{1}},
		{"by code", "s002", 0, []int64{2}},
		{"limit", "", 2, []int64{1, 2}},
		{"no match", "zzz", 0, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Search(students, tt.query, tt.limit)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d results, got %d", len(tt.expected), len(result))
			}
			for i, id := range tt.expected {
				if result[i].ID != id {
					t.Errorf("result[%d]: expected id %d, got %d", i, id, result[i].ID)
				}
			}
		})
	}
}

func TestSearchPrefixOrdering(t *testing.T) {
	students := []database.Student{
		{ID: 1, Name: "Anna Kovar"},
		{ID: 2, Name: "Kovar Petr"},
	}
	result := Search(students, "kovar", 0)
	if len(result) != 2 || result[0].ID != 2 {
		t.Errorf("expected prefix match first, got %+v", result)
	}
}
