package config

import (
	"os"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

func TestLoad_DefaultSlots(t *testing.T) {
	cfg := Load()

	defs, err := cfg.Attendance.SlotDefinitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 default slots, got %d", len(defs))
	}

	morning := defs[0]
	if morning.SlotID != "morning" || morning.DisplayName != "Morning Session" {
		t.Errorf("unexpected first slot: %+v", morning)
	}
	if morning.StartTime != database.MustParseTimeOfDay("08:45") {
		t.Errorf("expected morning to start at 08:45, got %s", morning.StartTime)
	}
	if morning.EndTime != database.MustParseTimeOfDay("09:30") {
		t.Errorf("expected morning to end at 09:30, got %s", morning.EndTime)
	}

	afternoon := defs[1]
	if afternoon.SlotID != "afternoon" {
		t.Errorf("expected second slot 'afternoon', got '%s'", afternoon.SlotID)
	}
	if afternoon.StartTime != database.MustParseTimeOfDay("13:45:00") {
		t.Errorf("expected afternoon to start at 13:45, got %s", afternoon.StartTime)
	}
}

func TestLoad_DefaultWorkingDays(t *testing.T) {
	os.Unsetenv("WORKING_DAYS")

	cfg := Load()

	expected := []string{"mon", "tue", "wed", "thu", "fri", "sat"}
	if len(cfg.Attendance.WorkingDays) != len(expected) {
		t.Fatalf("expected %d working days, got %v", len(expected), cfg.Attendance.WorkingDays)
	}
	for i, d := range expected {
		if cfg.Attendance.WorkingDays[i] != d {
			t.Errorf("expected working day %d to be '%s', got '%s'", i, d, cfg.Attendance.WorkingDays[i])
		}
	}
}

func TestLoad_CustomWorkingDays(t *testing.T) {
	t.Setenv("WORKING_DAYS", "mon, tue ,wed,thu,fri")

	cfg := Load()

	if len(cfg.Attendance.WorkingDays) != 5 {
		t.Fatalf("expected 5 working days, got %v", cfg.Attendance.WorkingDays)
	}
	if cfg.Attendance.WorkingDays[1] != "tue" {
		t.Errorf("expected trimmed 'tue', got '%s'", cfg.Attendance.WorkingDays[1])
	}
}

func TestLoad_RecognitionThreshold(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{"default", "", 0.60},
		{"custom", "0.75", 0.75},
		{"invalid", "high", 0.60},
		{"above one", "1.5", 0.60},
		{"zero", "0", 0.60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RECOGNITION_THRESHOLD", tt.value)

			cfg := Load()

			if cfg.Recognition.Threshold != tt.expected {
				t.Errorf("expected threshold %v, got %v", tt.expected, cfg.Recognition.Threshold)
			}
		})
	}
}

func TestLoad_DatabaseConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://attendance@localhost/attendance")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "invalid")

	cfg := Load()

	if cfg.Database.URL != "postgres://attendance@localhost/attendance" {
		t.Errorf("unexpected database URL '%s'", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25 for invalid input, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected default max idle conns 5, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoad_SlotReloadInterval(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Minute},
		{"15", 15 * time.Second},
		{"0", 0},
		{"-3", time.Minute},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv("SLOT_RELOAD_SECONDS", tt.value)

			cfg := Load()

			if cfg.Attendance.ReloadInterval != tt.expected {
				t.Errorf("expected reload interval %v, got %v", tt.expected, cfg.Attendance.ReloadInterval)
			}
		})
	}
}

func TestLoad_Users(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$adminhash")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("OPERATOR_USERNAME", "gate")
	t.Setenv("OPERATOR_PASSWORD_HASH", "$2a$10$operatorhash")

	cfg := Load()

	if len(cfg.Auth.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(cfg.Auth.Users))
	}
	if cfg.Auth.Users[0].Username != "admin" || cfg.Auth.Users[0].Role != "admin" {
		t.Errorf("unexpected admin user: %+v", cfg.Auth.Users[0])
	}
	if cfg.Auth.Users[1].Username != "gate" || cfg.Auth.Users[1].Role != "operator" {
		t.Errorf("unexpected operator user: %+v", cfg.Auth.Users[1])
	}
}

func TestLoad_UsersWithoutHashSkipped(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("OPERATOR_PASSWORD_HASH", "")

	cfg := Load()

	if len(cfg.Auth.Users) != 0 {
		t.Errorf("expected no users, got %+v", cfg.Auth.Users)
	}
}

func TestLoad_TokenTTL(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")

	cfg := Load()

	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("expected default token TTL 12h, got %v", cfg.Auth.TokenTTL)
	}
}

func TestAttendanceConfig_Location(t *testing.T) {
	cfg := AttendanceConfig{Timezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("expected UTC, got %s", loc)
	}

	cfg = AttendanceConfig{}
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.Local {
		t.Errorf("expected Local for empty timezone, got %s", loc)
	}

	cfg = AttendanceConfig{Timezone: "Mars/Olympus_Mons"}
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestSlotDefinitions_InvalidTime(t *testing.T) {
	cfg := AttendanceConfig{Slots: []SlotConfig{{ID: "evening", Start: "25:00", End: "26:00"}}}

	if _, err := cfg.SlotDefinitions(); err == nil {
		t.Error("expected error for invalid slot time")
	}
}
