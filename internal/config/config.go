package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string
	LogLevel       string
	Port           string
	Backend        string
	DSN            string
	SessionsFile   string
	ProfileFile    string
	AuthToken      string
	TrackCancelled bool
	TimeZone       string
}

// Load reads config.yaml from the working directory (optional) and the
// environment. Env keys are the config keys upper-cased with dots replaced
// by underscores, e.g. STORAGE_BACKEND, ANALYTICS_TRACK_CANCELLED.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", "8090")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dsn", "data/fastingtracker.db")
	v.SetDefault("storage.sessions_file", "data/sessions.json")
	v.SetDefault("storage.profile_file", "data/profile.json")
	v.SetDefault("auth.token", "")
	v.SetDefault("analytics.track_cancelled", false)
	v.SetDefault("time.zone", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:            v.GetString("app.env"),
		LogLevel:       v.GetString("log.level"),
		Port:           v.GetString("server.port"),
		Backend:        v.GetString("storage.backend"),
		DSN:            v.GetString("storage.dsn"),
		SessionsFile:   v.GetString("storage.sessions_file"),
		ProfileFile:    v.GetString("storage.profile_file"),
		AuthToken:      v.GetString("auth.token"),
		TrackCancelled: v.GetBool("analytics.track_cancelled"),
		TimeZone:       v.GetString("time.zone"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "file":
		if c.SessionsFile == "" || c.ProfileFile == "" {
			return errors.New("file storage requires STORAGE_SESSIONS_FILE and STORAGE_PROFILE_FILE")
		}
	case "sqlite", "postgres":
		if c.DSN == "" {
			return errors.New("STORAGE_DSN is required when STORAGE_BACKEND=" + c.Backend)
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: file, sqlite, postgres")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return errors.New("TIME_ZONE is not a valid IANA zone: " + c.TimeZone)
		}
	}
	return nil
}

// Location resolves the calendar-day time zone policy. Empty means
// device-local.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
