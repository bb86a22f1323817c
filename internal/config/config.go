package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Member assigns a user to a section (and optionally a side) of the operation.
type Member struct {
	UserID  uint   `yaml:"user_id"`
	Section string `yaml:"section"`
	Side    string `yaml:"side,omitempty"`
}

// TelegramConfig enables failure alerts to an operations chat.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Config keeps runtime settings for the planner.
type Config struct {
	// DatabaseURL is a SQLite file path or a postgres:// URL.
	DatabaseURL string `yaml:"database_url"`

	// Timezone decides which civil date "today" is.
	Timezone string `yaml:"timezone"`

	// ActiveDayStart/ActiveDayEnd bound the active-day window as signed day
	// offsets from today.
	ActiveDayStart int `yaml:"active_day_start"`
	ActiveDayEnd   int `yaml:"active_day_end"`

	// RetentionDays is how long events and tags are kept after their day.
	RetentionDays int `yaml:"retention_days"`

	// RolloverAt and ExpansionAt are HH:MM times of the daily jobs.
	RolloverAt  string `yaml:"rollover_at"`
	ExpansionAt string `yaml:"expansion_at"`

	// MetricsListen is the ops HTTP address; empty disables it.
	MetricsListen string `yaml:"metrics_listen"`

	LogLevel string `yaml:"log_level"`

	Telegram TelegramConfig `yaml:"telegram"`

	// Members seeds the section directory used when an obligation names no users.
	Members []Member `yaml:"members"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() Config {
	return Config{
		DatabaseURL:    "duty_planner.db",
		Timezone:       "Local",
		ActiveDayStart: -3,
		ActiveDayEnd:   7,
		RetentionDays:  30,
		RolloverAt:     "00:05",
		ExpansionAt:    "00:15",
		LogLevel:       "info",
	}
}

// Normalize fills in missing string values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if c.DatabaseURL == "" {
		c.DatabaseURL = def.DatabaseURL
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
	if c.RolloverAt == "" {
		c.RolloverAt = def.RolloverAt
	}
	if c.ExpansionAt == "" {
		c.ExpansionAt = def.ExpansionAt
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var problems []string
	if c.ActiveDayStart > c.ActiveDayEnd {
		problems = append(problems, fmt.Sprintf("active_day_start (%d) is after active_day_end (%d)", c.ActiveDayStart, c.ActiveDayEnd))
	}
	if c.ActiveDayStart > 0 || c.ActiveDayEnd < 0 {
		problems = append(problems, "active-day window must contain today")
	}
	if -c.ActiveDayStart > c.RetentionDays {
		problems = append(problems, fmt.Sprintf("retention_days (%d) is shorter than the active-day window", c.RetentionDays))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id is required when telegram.token is set")
	}
	for i, m := range c.Members {
		if m.UserID == 0 || strings.TrimSpace(m.Section) == "" {
			problems = append(problems, fmt.Sprintf("members[%d] needs user_id and section", i))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RedactedDatabaseURL is DatabaseURL with any password masked, for logging.
func (c Config) RedactedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		return c.DatabaseURL
	}
	return u.Redacted()
}

// Load reads the YAML file at path (missing file or empty path means defaults),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// First run without a file: defaults plus environment.
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DatabaseURL = getenvDefault("DUTY_DATABASE_URL", cfg.DatabaseURL)
	cfg.Timezone = getenvDefault("DUTY_TIMEZONE", cfg.Timezone)
	cfg.RolloverAt = getenvDefault("DUTY_ROLLOVER_AT", cfg.RolloverAt)
	cfg.ExpansionAt = getenvDefault("DUTY_EXPANSION_AT", cfg.ExpansionAt)
	cfg.MetricsListen = getenvDefault("DUTY_METRICS_LISTEN", cfg.MetricsListen)
	cfg.LogLevel = getenvDefault("DUTY_LOG_LEVEL", cfg.LogLevel)
	cfg.Telegram.Token = getenvDefault("DUTY_TELEGRAM_TOKEN", cfg.Telegram.Token)

	var err error
	if cfg.ActiveDayStart, err = getenvInt("DUTY_ACTIVE_DAY_START", cfg.ActiveDayStart); err != nil {
		return err
	}
	if cfg.ActiveDayEnd, err = getenvInt("DUTY_ACTIVE_DAY_END", cfg.ActiveDayEnd); err != nil {
		return err
	}
	if cfg.RetentionDays, err = getenvInt("DUTY_RETENTION_DAYS", cfg.RetentionDays); err != nil {
		return err
	}
	if raw := strings.TrimSpace(os.Getenv("DUTY_TELEGRAM_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("DUTY_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
