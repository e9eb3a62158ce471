package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUpdateInterval is the catalog staleness interval used when the
// configured "HH:MM" string is missing or malformed.
const DefaultUpdateInterval = 12 * time.Hour

// Config holds the complete application configuration
type Config struct {
	// Durable store settings
	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`

	// Channel catalog settings
	Catalog struct {
		PlaylistURL    string `yaml:"playlist_url"`
		UpdateInterval string `yaml:"update_interval"` // "HH:MM", default 12:00
		RoutingPrefix  string `yaml:"routing_prefix"`
	} `yaml:"catalog"`

	// Program guide settings
	Guide struct {
		Source    string `yaml:"source"` // single URL, comma list, or URL of a URL list
		IDSuffix  string `yaml:"id_suffix"`
		RefreshAt string `yaml:"refresh_at"` // daily wall-clock refresh time, "HH:MM"
		Timezone  string `yaml:"timezone"`
	} `yaml:"guide"`

	// Fetch settings
	Fetch struct {
		Timeout          time.Duration `yaml:"timeout"`
		BreakerThreshold int           `yaml:"breaker_threshold"`
		BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"fetch"`

	// Log level (DEBUG, INFO, WARN, ERROR)
	LogLevel string `yaml:"log_level"`
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.DB.Path == "" {
		errors = append(errors, "DB path is required")
	}

	if c.Catalog.PlaylistURL == "" {
		errors = append(errors, "Catalog playlist URL is required")
	}

	// Guide source may be empty; guide URLs announced by the playlist take
	// over in that case.
	if c.Guide.RefreshAt != "" {
		if _, _, err := parseClock(c.Guide.RefreshAt); err != nil {
			errors = append(errors, fmt.Sprintf("Guide refresh_at: %v", err))
		}
	}

	if c.Fetch.Timeout <= 0 {
		errors = append(errors, "Fetch timeout must be positive")
	}
	if c.Fetch.BreakerThreshold <= 0 {
		errors = append(errors, "Fetch breaker threshold must be positive")
	}
	if c.Fetch.BreakerCooldown <= 0 {
		errors = append(errors, "Fetch breaker cooldown must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.DB.Path = "iptv-cache.db"

	cfg.Catalog.PlaylistURL = "" // Required, no default
	cfg.Catalog.UpdateInterval = "12:00"
	cfg.Catalog.RoutingPrefix = "channel/"

	cfg.Guide.Source = "" // Required, no default
	cfg.Guide.RefreshAt = "04:30"
	cfg.Guide.Timezone = "UTC"

	cfg.Fetch.Timeout = 30 * time.Second
	cfg.Fetch.BreakerThreshold = 3
	cfg.Fetch.BreakerCooldown = 5 * time.Minute

	cfg.LogLevel = "INFO"

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if present) and applies environment
// variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DB.Path = val
	}

	if val := os.Getenv("PLAYLIST_URL"); val != "" {
		cfg.Catalog.PlaylistURL = val
	}
	if val := os.Getenv("UPDATE_INTERVAL"); val != "" {
		cfg.Catalog.UpdateInterval = val
	}

	if val := os.Getenv("GUIDE_SOURCE"); val != "" {
		cfg.Guide.Source = val
	}
	if val := os.Getenv("GUIDE_REFRESH_AT"); val != "" {
		cfg.Guide.RefreshAt = val
	}
	if val := os.Getenv("GUIDE_TIMEZONE"); val != "" {
		cfg.Guide.Timezone = val
	}

	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT format (expected duration like '30s', '1m'): %w", err)
		}
		if duration <= 0 {
			return fmt.Errorf("FETCH_TIMEOUT must be positive, got: %s", val)
		}
		cfg.Fetch.Timeout = duration
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	return nil
}

// parseClock parses an "HH:MM" wall-clock string
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock string %q (expected HH:MM)", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock string %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock string %q", s)
	}
	return hour, minute, nil
}

// RefreshClock returns the daily guide refresh time as (hour, minute).
// A malformed value falls back to 04:30.
func (c *Config) RefreshClock() (hour, minute int) {
	hour, minute, err := parseClock(c.Guide.RefreshAt)
	if err != nil {
		return 4, 30
	}
	return hour, minute
}

// ParseUpdateInterval converts an "HH:MM" interval string into a duration.
// A malformed or empty string yields DefaultUpdateInterval and an error the
// caller may log as a warning; the returned duration is always usable.
func ParseUpdateInterval(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultUpdateInterval, fmt.Errorf("empty update interval")
	}
	hour, minute, err := parseClock(s)
	if err != nil {
		return DefaultUpdateInterval, err
	}
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
	if d <= 0 {
		return DefaultUpdateInterval, fmt.Errorf("update interval %q must be positive", s)
	}
	return d, nil
}

// Location resolves the configured guide timezone. A malformed timezone
// yields UTC and an error the caller may log as a warning.
func (c *Config) Location() (*time.Location, error) {
	if c.Guide.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Guide.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", c.Guide.Timezone, err)
	}
	return loc, nil
}

// Print outputs the configuration to stdout
func (c *Config) Print() {
	fmt.Printf("dbPath: %v\n", c.DB.Path)
	fmt.Printf("playlistUrl: %v\n", c.Catalog.PlaylistURL)
	fmt.Printf("updateInterval: %v\n", c.Catalog.UpdateInterval)
	fmt.Printf("routingPrefix: %v\n", c.Catalog.RoutingPrefix)
	fmt.Printf("guideSource: %v\n", c.Guide.Source)
	fmt.Printf("guideRefreshAt: %v\n", c.Guide.RefreshAt)
	fmt.Printf("guideTimezone: %v\n", c.Guide.Timezone)
	fmt.Printf("fetchTimeout: %v\n", c.Fetch.Timeout)
	fmt.Printf("logLevel: %v\n", c.LogLevel)
}
