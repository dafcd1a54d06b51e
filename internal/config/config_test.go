package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "data/fastingtracker.db", cfg.DSN)
	assert.False(t, cfg.TrackCancelled)
	assert.Empty(t, cfg.AuthToken)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("ANALYTICS_TRACK_CANCELLED", "true")
	t.Setenv("AUTH_TOKEN", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Backend)
	assert.True(t, cfg.TrackCancelled)
	assert.Equal(t, "s3cret", cfg.AuthToken)
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:          "development",
		Backend:      "sqlite",
		DSN:          "x.db",
		SessionsFile: "s.json",
		ProfileFile:  "p.json",
	}

	t.Run("ok", func(t *testing.T) {
		cfg := base
		assert.NoError(t, cfg.Validate())
	})
	t.Run("unknown backend", func(t *testing.T) {
		cfg := base
		cfg.Backend = "redis"
		assert.Error(t, cfg.Validate())
	})
	t.Run("sqlite without dsn", func(t *testing.T) {
		cfg := base
		cfg.DSN = ""
		assert.Error(t, cfg.Validate())
	})
	t.Run("file without paths", func(t *testing.T) {
		cfg := base
		cfg.Backend = "file"
		cfg.SessionsFile = ""
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad env", func(t *testing.T) {
		cfg := base
		cfg.Env = "qa"
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad zone", func(t *testing.T) {
		cfg := base
		cfg.TimeZone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})
}

func TestLocation(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.TimeZone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}
