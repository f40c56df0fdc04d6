// Package config loads journal configuration from an optional YAML file and
// JOURNAL_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Classifier modes
const (
	ModeRemote  = "remote"
	ModeLocal   = "local"
	ModeKeyword = "keyword"
)

// Config holds the complete journal configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Insights   InsightsConfig   `koanf:"insights"`
	Tagging    TaggingConfig    `koanf:"tagging"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds sqlite settings
type DatabaseConfig struct {
	Path string `koanf:"path"`
	WAL  bool   `koanf:"wal"`
	Sync string `koanf:"sync"`
}

// ClassifierConfig selects and tunes the classification backend
type ClassifierConfig struct {
	Mode            string        `koanf:"mode"`
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout"`
	BulkTimeout     time.Duration `koanf:"bulk_timeout"`
	RateLimit       float64       `koanf:"rate_limit"`
	Burst           int           `koanf:"burst"`
	MaxRetries      int           `koanf:"max_retries"`
	AnthropicAPIKey Secret        `koanf:"anthropic_api_key"`
	Model           string        `koanf:"model"`
}

// InsightsConfig tunes report generation
type InsightsConfig struct {
	Window             int `koanf:"window"`
	RecentWindow       int `koanf:"recent_window"`
	TopThemes          int `koanf:"top_themes"`
	MilestoneThreshold int `koanf:"milestone_threshold"`
}

// TaggingConfig controls background re-tagging. An empty schedule disables it.
type TaggingConfig struct {
	Schedule string `koanf:"schedule"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON always returns the redacted value
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "~/.journal/journal.db",
			WAL:  true,
			Sync: "NORMAL",
		},
		Classifier: ClassifierConfig{
			Mode:        ModeLocal,
			BaseURL:     "http://localhost:5000",
			Timeout:     30 * time.Second,
			BulkTimeout: 2 * time.Minute,
			RateLimit:   5,
			Burst:       5,
			MaxRetries:  2,
			Model:       "claude-sonnet-4-20250514",
		},
		Insights: InsightsConfig{
			Window:             100,
			RecentWindow:       10,
			TopThemes:          5,
			MilestoneThreshold: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Database.Sync == "" {
		cfg.Database.Sync = def.Database.Sync
	}

	if cfg.Classifier.Mode == "" {
		cfg.Classifier.Mode = def.Classifier.Mode
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = def.Classifier.Timeout
	}
	if cfg.Classifier.BulkTimeout == 0 {
		cfg.Classifier.BulkTimeout = def.Classifier.BulkTimeout
	}
	if cfg.Classifier.RateLimit == 0 {
		cfg.Classifier.RateLimit = def.Classifier.RateLimit
	}
	if cfg.Classifier.Burst == 0 {
		cfg.Classifier.Burst = def.Classifier.Burst
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = def.Classifier.Model
	}

	if cfg.Insights.Window == 0 {
		cfg.Insights.Window = def.Insights.Window
	}
	if cfg.Insights.RecentWindow == 0 {
		cfg.Insights.RecentWindow = def.Insights.RecentWindow
	}
	if cfg.Insights.TopThemes == 0 {
		cfg.Insights.TopThemes = def.Insights.TopThemes
	}
	if cfg.Insights.MilestoneThreshold == 0 {
		cfg.Insights.MilestoneThreshold = def.Insights.MilestoneThreshold
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// Validate checks the configuration for values no component can run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if !slices.Contains([]string{"OFF", "NORMAL", "FULL", "EXTRA"}, c.Database.Sync) {
		return fmt.Errorf("invalid database sync mode: %q", c.Database.Sync)
	}

	switch c.Classifier.Mode {
	case ModeRemote:
		if c.Classifier.BaseURL == "" {
			return errors.New("classifier base_url required in remote mode")
		}
	case ModeLocal, ModeKeyword:
	default:
		return fmt.Errorf("invalid classifier mode: %q (must be remote, local or keyword)", c.Classifier.Mode)
	}
	if c.Classifier.Timeout <= 0 || c.Classifier.BulkTimeout <= 0 {
		return errors.New("classifier timeouts must be positive")
	}
	if c.Classifier.RateLimit < 0 || c.Classifier.Burst < 0 || c.Classifier.MaxRetries < 0 {
		return errors.New("classifier rate_limit, burst and max_retries must not be negative")
	}

	if c.Insights.Window < 1 || c.Insights.RecentWindow < 1 || c.Insights.TopThemes < 1 || c.Insights.MilestoneThreshold < 1 {
		return errors.New("insights window, recent_window, top_themes and milestone_threshold must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q (must be json or console)", c.Logging.Format)
	}

	return nil
}
