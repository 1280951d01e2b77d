package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHolidayURL, cfg.Holiday.URL)
	assert.Equal(t, 8, cfg.UTCOffsetHours)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadYAMLAndNormalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
utc_offset_hours: 99
holiday:
  path: ./holidays.ics
  cache_ttl: 2h
export:
  reminder_minutes: -5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 8, cfg.UTCOffsetHours)
	assert.Equal(t, "./holidays.ics", cfg.Holiday.Path)
	assert.Empty(t, cfg.Holiday.URL, "a local path needs no url")
	assert.Equal(t, 2*time.Hour, cfg.Holiday.CacheTTL)
	assert.Equal(t, "0 4 * * *", cfg.Holiday.RefreshCron)
	assert.Zero(t, cfg.Export.ReminderMinutes)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.BasicAuth.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600))

	t.Setenv("COURSECAL_LISTEN", ":7000")
	t.Setenv("COURSECAL_REDIS_ADDR", "redis:6379")
	t.Setenv("COURSECAL_HOLIDAY_CACHE_TTL", "1h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Hour, cfg.Holiday.CacheTTL)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLocation(t *testing.T) {
	cfg := &Config{UTCOffsetHours: 8}
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 8*3600, offset)
}
