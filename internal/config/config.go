// Package config loads application configuration from file, environment,
// and defaults, in that order of precedence (lowest to highest: defaults,
// file, environment).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Content   ContentConfig   `mapstructure:"content"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig locates the local store.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty means the default under
	// the user's data directory.
	Path string `mapstructure:"path"`
}

// RemoteConfig describes the authoritative backend.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	UserID  string `mapstructure:"user_id"`
}

// SyncConfig tunes the sync manager.
type SyncConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	StartDelay time.Duration `mapstructure:"start_delay"`
}

// ContentConfig locates local chapter documents.
type ContentConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// DashboardConfig controls the WebSocket status server.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LogConfig controls daemon log output.
type LogConfig struct {
	// File is the rotating log file for daemon mode. Empty logs to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from the given file path. An empty path falls
// back to eventos.yaml in the working directory and then the user config
// directory; a missing file is not an error, defaults and environment
// still apply. Environment variables use the EVENTOS_ prefix with
// underscores (EVENTOS_REMOTE_TOKEN overrides remote.token).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("eventos")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "eventos"))
		}
	}

	v.SetEnvPrefix("EVENTOS")
	v.AutomaticEnv()
	_ = v.BindEnv("database.path", "EVENTOS_DATABASE_PATH")
	_ = v.BindEnv("remote.base_url", "EVENTOS_REMOTE_BASE_URL")
	_ = v.BindEnv("remote.token", "EVENTOS_REMOTE_TOKEN")
	_ = v.BindEnv("remote.user_id", "EVENTOS_REMOTE_USER_ID")
	_ = v.BindEnv("sync.interval", "EVENTOS_SYNC_INTERVAL")
	_ = v.BindEnv("content.dir", "EVENTOS_CONTENT_DIR")
	_ = v.BindEnv("dashboard.port", "EVENTOS_DASHBOARD_PORT")
	_ = v.BindEnv("log.file", "EVENTOS_LOG_FILE")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist; the default search may come up empty.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "http://localhost:8080")
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.start_delay", 2*time.Second)
	v.SetDefault("content.dir", "content")
	v.SetDefault("content.watch", true)
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8484)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)
}

// defaultDatabasePath puts the store under the user data directory,
// falling back to the working directory.
func defaultDatabasePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eventos", "eventos.db")
	}
	return "eventos.db"
}

// Validate checks the fields the daemon cannot run without.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %v", c.Sync.Interval)
	}
	return nil
}
