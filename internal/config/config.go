package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/existflow/tasknest/internal/apperr"
	"gopkg.in/yaml.v3"
)

// DefaultCalendarID is the calendar reminders go to unless configured otherwise
const DefaultCalendarID = "primary"

// Config holds server and CLI settings
type Config struct {
	Addr        string `yaml:"addr" json:"addr"`                 // HTTP listen address
	DatabaseURL string `yaml:"database_url" json:"database_url"` // postgres:// URL or SQLite path

	// bcrypt hash of the API bearer token; empty disables auth
	APITokenHash string `yaml:"api_token_hash" json:"-"`

	CalendarTimeout time.Duration `yaml:"calendar_timeout" json:"calendar_timeout"`
	SaveDebounce    time.Duration `yaml:"save_debounce" json:"save_debounce"`

	Google GoogleConfig `yaml:"google" json:"google"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// GoogleConfig holds the OAuth client and refresh token used for Google Calendar
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	RefreshToken string `yaml:"refresh_token" json:"-"`
	CalendarID   string `yaml:"calendar_id" json:"calendar_id"`
	TimeZone     string `yaml:"time_zone" json:"time_zone"`
}

// ErrMissingCredentials is wrapped by Validate
var ErrMissingCredentials = errors.New("missing Google API credentials")

// Configured reports whether any credential is set
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" || g.ClientSecret != "" || g.RefreshToken != ""
}

// Validate checks that every credential is present
func (g GoogleConfig) Validate() error {
	var missing []string
	if g.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if g.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if g.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return apperr.Configuration("google calendar",
			fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", ")))
	}
	if g.TimeZone != "" {
		if _, err := time.LoadLocation(g.TimeZone); err != nil {
			return apperr.Configuration("google calendar", fmt.Errorf("invalid time_zone: %w", err))
		}
	}
	return nil
}

// Dir returns ~/.tasknest
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasknest"), nil
}

// DefaultPath returns ~/.tasknest/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath, dbPath := "", ""
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "tasknest.log")
		dbPath = filepath.Join(dir, "tasknest.db")
	}

	return &Config{
		Addr:            ":8080",
		DatabaseURL:     dbPath,
		CalendarTimeout: 10 * time.Second,
		SaveDebounce:    500 * time.Millisecond,
		Google:          GoogleConfig{CalendarID: DefaultCalendarID},
		LogLevel:        "INFO",
		LogFile:         logPath,
		LogConsole:      false,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// applyEnv lets the environment override the file
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
	c.Addr = getEnv("TASKNEST_ADDR", c.Addr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.APITokenHash = getEnv("TASKNEST_API_TOKEN_HASH", c.APITokenHash)

	c.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RefreshToken = getEnv("GOOGLE_REFRESH_TOKEN", c.Google.RefreshToken)
	c.Google.CalendarID = getEnv("GOOGLE_CALENDAR_ID", c.Google.CalendarID)
	c.Google.TimeZone = getEnv("TASKNEST_TIMEZONE", c.Google.TimeZone)

	c.LogLevel = getEnv("TASKNEST_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("TASKNEST_LOG_FILE", c.LogFile)
	if v := os.Getenv("TASKNEST_LOG_CONSOLE"); v != "" {
		c.LogConsole = v == "true" || v == "1"
	}
}

// Load loads config from ~/.tasknest/config.yaml
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads config from path. A missing file yields the defaults.
// Environment variables are applied on top either way.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if cfg.Google.CalendarID == "" {
		cfg.Google.CalendarID = DefaultCalendarID
	}
	return cfg, nil
}

// Save saves config to ~/.tasknest/config.yaml
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, readable only by the owner
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
