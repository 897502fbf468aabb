package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the settings that come from the environment rather than
// flags: the optional remote store and the background refresh schedule.
type Config struct {
	Remote  RemoteConfig
	Refresh RefreshConfig
}

// RemoteConfig points at the remote document store. An empty URI disables
// synchronization and runs the server local-only.
type RemoteConfig struct {
	URI    string
	DBName string
}

// RefreshConfig drives the scheduled recent-activity pull.
type RefreshConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. Missing .env files are acceptable when
// configuration comes from the environment directly.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Remote: RemoteConfig{
			URI:    os.Getenv("SKLAD_REMOTE_URI"),
			DBName: getenvWithDefault("SKLAD_REMOTE_DB", "sklad"),
		},
		Refresh: RefreshConfig{
			CronSchedule: getenvWithDefault("SKLAD_REFRESH_SCHEDULE", "*/15 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that dependent fields are populated consistently.
func (c *Config) Validate() error {
	if c.Remote.URI != "" && c.Remote.DBName == "" {
		return errors.New("SKLAD_REMOTE_DB must be provided when SKLAD_REMOTE_URI is set")
	}
	if c.Refresh.CronSchedule == "" {
		return errors.New("SKLAD_REFRESH_SCHEDULE must not be empty")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
