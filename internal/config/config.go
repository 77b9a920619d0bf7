package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Directory   DirectoryConfig
	Auth        AuthConfig
	Recognition RecognitionConfig
	Attendance  AttendanceConfig
	Web         WebConfig
}

type DatabaseConfig struct {
	URL          string // postgres://... or sqlite://path
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type DirectoryConfig struct {
	MySQLURL string // DSN of an external student directory (optional, local students table otherwise)
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Users     []UserConfig
}

type UserConfig struct {
	Username     string
	PasswordHash string // bcrypt
	Role         string // admin or operator
}

// GetJWTSecret returns the signing secret
func (c *AuthConfig) GetJWTSecret() []byte {
	return []byte(c.JWTSecret)
}

type WebConfig struct {
	AllowedOrigins []string // CORS origins in addition to localhost
}

type RecognitionConfig struct {
	ServiceURL    string  // face service base URL, defaults to http://localhost:8000
	Threshold     float64 // minimum cosine similarity, strictly exceeded
	HNSWIndexPath string  // optional path to persist the gallery index
}

type AttendanceConfig struct {
	Timezone       string
	WorkingDays    []string
	Slots          []SlotConfig
	ReloadInterval time.Duration
}

type SlotConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type defaultsFile struct {
	Slots       []SlotConfig `yaml:"slots"`
	WorkingDays []string     `yaml:"working_days"`
	Recognition struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"recognition"`
}

// Location returns the campus time zone.
func (c *AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlotDefinitions converts the bootstrap slots.
func (c *AttendanceConfig) SlotDefinitions() ([]database.SlotDefinition, error) {
	defs := make([]database.SlotDefinition, 0, len(c.Slots))
	for _, s := range c.Slots {
		start, err := database.ParseTimeOfDay(s.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", s.ID, err)
		}
		end, err := database.ParseTimeOfDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", s.ID, err)
		}
		defs = append(defs, database.SlotDefinition{
			SlotID:      s.ID,
			DisplayName: s.Name,
			StartTime:   start,
			EndTime:     end,
			IsActive:    true,
		})
	}
	return defs, nil
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envList splits a comma separated environment variable.
func envList(key string, defaultVal []string) []string {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	threshold := defaults.Recognition.Threshold
	if threshold == 0 {
		threshold = constants.DefaultRecognitionThreshold
	}

	reload := constants.DefaultSlotReloadSeconds
	if os.Getenv("SLOT_RELOAD_SECONDS") == "0" {
		reload = 0
	} else {
		reload = envInt("SLOT_RELOAD_SECONDS", reload)
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Directory: DirectoryConfig{
			MySQLURL: os.Getenv("STUDENT_DIRECTORY_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  time.Duration(envInt("AUTH_TOKEN_TTL_HOURS", constants.DefaultTokenTTLHours)) * time.Hour,
			Users:     loadUsers(),
		},
		Recognition: RecognitionConfig{
			ServiceURL:    os.Getenv("FACE_SERVICE_URL"),
			Threshold:     envFloat("RECOGNITION_THRESHOLD", threshold),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Attendance: AttendanceConfig{
			Timezone:       os.Getenv("APP_TIMEZONE"),
			WorkingDays:    envList("WORKING_DAYS", defaults.WorkingDays),
			Slots:          defaults.Slots,
			ReloadInterval: time.Duration(reload) * time.Second,
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", nil),
		},
	}
}

// loadUsers reads the admin and operator accounts. Accounts without a password hash are skipped.
func loadUsers() []UserConfig {
	var users []UserConfig
	for _, role := range []string{"admin", "operator"} {
		prefix := strings.ToUpper(role)
		hash := os.Getenv(prefix + "_PASSWORD_HASH")
		if hash == "" {
			continue
		}
		username := os.Getenv(prefix + "_USERNAME")
		if username == "" {
			username = role
		}
		users = append(users, UserConfig{Username: username, PasswordHash: hash, Role: role})
	}
	return users
}
