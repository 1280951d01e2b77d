package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHolidayURL  = "https://calendars.icloud.com/holidays/cn_zh.ics"
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "0 4 * * *"
	defaultCacheTTL    = 720 * time.Hour
	defaultUTCOffset   = 8
)

// HolidayConfig describes where the holiday feed comes from and how it is
// cached. Path, when set, wins over URL.
type HolidayConfig struct {
	URL      string `yaml:"url" json:"url" env:"COURSECAL_HOLIDAY_URL"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty" env:"COURSECAL_HOLIDAY_PATH"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"COURSECAL_HOLIDAY_CACHE_DIR"`

	// RefreshCron is a cron-style schedule (e.g. "0 4 * * *") for
	// re-fetching the feed while serving.
	RefreshCron string        `yaml:"refresh" json:"refresh" env:"COURSECAL_HOLIDAY_REFRESH"`
	CacheTTL    time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"COURSECAL_HOLIDAY_CACHE_TTL"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" env:"COURSECAL_HOLIDAY_TIMEOUT"`
}

// RedisConfig enables the Redis feed cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty" env:"COURSECAL_REDIS_ADDR"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" env:"COURSECAL_REDIS_PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"COURSECAL_REDIS_DB"`
	Prefix   string `yaml:"prefix" json:"prefix" env:"COURSECAL_REDIS_PREFIX"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ExportConfig controls calendar rendering.
type ExportConfig struct {
	CalendarName       string `yaml:"calendar_name" json:"calendar_name" env:"COURSECAL_CALENDAR_NAME"`
	ReminderMinutes    int    `yaml:"reminder_minutes" json:"reminder_minutes" env:"COURSECAL_REMINDER_MINUTES"`
	IncludeTeacher     bool   `yaml:"include_teacher" json:"include_teacher" env:"COURSECAL_INCLUDE_TEACHER"`
	IncludeDescription bool   `yaml:"include_description" json:"include_description" env:"COURSECAL_INCLUDE_DESCRIPTION"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. Auth is
// enabled when Username is set.
type BasicAuthConfig struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty" env:"COURSECAL_AUTH_USERNAME"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" env:"COURSECAL_AUTH_PASSWORD"`
}

func (b BasicAuthConfig) Enabled() bool {
	return b.Username != ""
}

// Config is the top-level application configuration.
type Config struct {
	Listen   string `yaml:"listen" json:"listen" env:"COURSECAL_LISTEN"`
	LogLevel string `yaml:"log_level" json:"log_level" env:"COURSECAL_LOG_LEVEL"`

	// UTCOffsetHours is the fixed offset every course time is expressed in.
	UTCOffsetHours int `yaml:"utc_offset_hours" json:"utc_offset_hours" env:"COURSECAL_UTC_OFFSET_HOURS"`

	Holiday   HolidayConfig   `yaml:"holiday" json:"holiday"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	BasicAuth BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		LogLevel:       "info",
		UTCOffsetHours: defaultUTCOffset,
		Holiday: HolidayConfig{
			URL:         DefaultHolidayURL,
			CacheDir:    "./var/holiday-cache",
			RefreshCron: defaultRefreshCron,
			CacheTTL:    defaultCacheTTL,
			Timeout:     15 * time.Second,
		},
		Redis: RedisConfig{Prefix: "coursecal"},
		Export: ExportConfig{
			CalendarName:    "Courses",
			ReminderMinutes: 15,
			IncludeTeacher:  true,
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	// Real offsets lie within [-12, +14].
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		c.UTCOffsetHours = defaultUTCOffset
	}
	if c.Holiday.URL == "" && c.Holiday.Path == "" {
		c.Holiday.URL = DefaultHolidayURL
	}
	if c.Holiday.RefreshCron == "" {
		c.Holiday.RefreshCron = defaultRefreshCron
	}
	if c.Holiday.CacheTTL <= 0 {
		c.Holiday.CacheTTL = defaultCacheTTL
	}
	if c.Holiday.Timeout <= 0 {
		c.Holiday.Timeout = 15 * time.Second
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "coursecal"
	}
	if c.Export.ReminderMinutes < 0 {
		c.Export.ReminderMinutes = 0
	}
}

// Location is the fixed zone course times are interpreted in.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*3600)
}

// Load loads configuration from the given YAML path, then applies
// COURSECAL_* environment overrides.
//
// If the file does not exist a default config is written with 0600 perms
// and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Caller decides whether an unwritable path is fatal.
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read config env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
