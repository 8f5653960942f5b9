// Package config loads icon-collector settings from defaults, TOML files
// and ICON_COLLECTOR_* environment variables, in that order of priority.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full CLI configuration.
type Config struct {
	Collection CollectionConfig `toml:"collection"`
	Browser    BrowserConfig    `toml:"browser"`
	Timing     TimingConfig     `toml:"timing"`
	Output     OutputConfig     `toml:"output"`
	Download   DownloadConfig   `toml:"download"`
	Logging    LoggingConfig    `toml:"logging"`
}

// CollectionConfig describes what to collect and how to authenticate.
type CollectionConfig struct {
	URL      string `toml:"url"`
	Size     int    `toml:"size"` // icon edge in pixels
	Email    string `toml:"email"`
	Password string `toml:"password"` // prefer ICON_COLLECTOR_PASSWORD over storing it in a file
}

type BrowserConfig struct {
	Visible      bool   `toml:"visible"`
	ProfileDir   string `toml:"profile_dir"` // empty = user cache dir
	ChromePath   string `toml:"chrome_path"`
	AutoDownload bool   `toml:"auto_download"` // fetch Chromium when none is installed
	NoSandbox    bool   `toml:"no_sandbox"`
	UserAgent    string `toml:"user_agent"`
}

// TimingConfig holds duration strings such as "1.5s".
type TimingConfig struct {
	NavigationTimeout string `toml:"navigation_timeout"`
	SettleDelay       string `toml:"settle_delay"`
	VerificationDelay string `toml:"verification_delay"` // time to solve a captcha in a visible browser
	ScrollSettle      string `toml:"scroll_settle"`
	MaxScrolls        int    `toml:"max_scrolls"`
	RunTimeout        string `toml:"run_timeout"` // whole collection run, "0" = none
}

type OutputConfig struct {
	Dir      string `toml:"dir"`
	Format   string `toml:"format"` // png, ico or both
	Manifest string `toml:"manifest"`
}

type DownloadConfig struct {
	RequestTimeout string  `toml:"request_timeout"`
	Retries        int     `toml:"retries"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second
}

type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty = console only
}

// NewDefaultConfig returns the built-in settings.
func NewDefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Size: 256,
		},
		Timing: TimingConfig{
			NavigationTimeout: "60s",
			SettleDelay:       "5s",
			VerificationDelay: "5s",
			ScrollSettle:      "1.5s",
			MaxScrolls:        20,
			RunTimeout:        "10m",
		},
		Output: OutputConfig{
			Dir:    "data",
			Format: "ico",
		},
		Download: DownloadConfig{
			RequestTimeout: "30s",
			Retries:        2,
			RateLimit:      5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> environment. Empty paths are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ICON_COLLECTOR_URL"); v != "" {
		config.Collection.URL = v
	}
	if v := os.Getenv("ICON_COLLECTOR_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Collection.Size = n
		}
	}
	if v := os.Getenv("ICON_COLLECTOR_EMAIL"); v != "" {
		config.Collection.Email = v
	}
	if v := os.Getenv("ICON_COLLECTOR_PASSWORD"); v != "" {
		config.Collection.Password = v
	}

	if v := os.Getenv("ICON_COLLECTOR_VISIBLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Visible = b
		}
	}
	if v := os.Getenv("ICON_COLLECTOR_PROFILE_DIR"); v != "" {
		config.Browser.ProfileDir = v
	}
	if v := os.Getenv("ICON_COLLECTOR_CHROME_PATH"); v != "" {
		config.Browser.ChromePath = v
	}
	if v := os.Getenv("ICON_COLLECTOR_AUTO_DOWNLOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.AutoDownload = b
		}
	}
	if v := os.Getenv("ICON_COLLECTOR_NO_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.NoSandbox = b
		}
	}

	if v := os.Getenv("ICON_COLLECTOR_NAVIGATION_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			config.Timing.NavigationTimeout = v
		}
	}
	if v := os.Getenv("ICON_COLLECTOR_VERIFICATION_DELAY"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			config.Timing.VerificationDelay = v
		}
	}
	if v := os.Getenv("ICON_COLLECTOR_RUN_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			config.Timing.RunTimeout = v
		}
	}

	if v := os.Getenv("ICON_COLLECTOR_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("ICON_COLLECTOR_FORMAT"); v != "" {
		config.Output.Format = v
	}

	if v := os.Getenv("ICON_COLLECTOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ICON_COLLECTOR_LOG_FILE"); v != "" {
		config.Logging.File = v
	}
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Collection.Size < 0 {
		return fmt.Errorf("collection.size must not be negative, got %d", c.Collection.Size)
	}
	switch strings.ToLower(c.Output.Format) {
	case "png", "ico", "both":
	default:
		return fmt.Errorf("output.format must be png, ico or both, got %q", c.Output.Format)
	}
	for name, v := range map[string]string{
		"timing.navigation_timeout": c.Timing.NavigationTimeout,
		"timing.settle_delay":       c.Timing.SettleDelay,
		"timing.verification_delay": c.Timing.VerificationDelay,
		"timing.scroll_settle":      c.Timing.ScrollSettle,
		"timing.run_timeout":        c.Timing.RunTimeout,
		"download.request_timeout":  c.Download.RequestTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration string, returning fallback when s is empty
// or invalid.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
