package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// expandTilde expands ~ or ~/ at the start of a path to the user's home directory
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Config holds all configuration for the migration tool
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Migration   MigrationConfig   `yaml:"migration"`
	Logging     LoggingConfig     `yaml:"logging"`
	Slack       SlackConfig       `yaml:"slack"`
}

// SourceConfig holds source platform API settings
type SourceConfig struct {
	BaseURL           string `yaml:"base_url"`
	AccessToken       string `yaml:"access_token"`
	RequestIntervalMS int    `yaml:"request_interval_ms"` // minimum gap between API calls
	PageSize          int    `yaml:"page_size"`
	StartDate         string `yaml:"start_date"` // sales extraction range, YYYY-MM-DD
	EndDate           string `yaml:"end_date"`
}

// DestinationConfig holds destination platform API settings
type DestinationConfig struct {
	BaseURL           string `yaml:"base_url"`
	AccessToken       string `yaml:"access_token"`
	RequestIntervalMS int    `yaml:"request_interval_ms"`
	DefaultVendor     string `yaml:"default_vendor"`     // vendor used when the source row has none
	PhoneCountryCode  string `yaml:"phone_country_code"` // replaces the domestic trunk "0" prefix
}

// MigrationConfig holds migration behavior settings
type MigrationConfig struct {
	DataDir           string `yaml:"data_dir"`
	DryRun            bool   `yaml:"dry_run"`
	IncludeZeroOrders bool   `yaml:"include_zero_orders"` // migrate orders with a zero total
	NameFilter        string `yaml:"name_filter"`         // case-sensitive substring match on record names
	MaxRetries        int    `yaml:"max_retries"`
	RetryBackoffMS    int    `yaml:"retry_backoff_ms"` // base for exponential backoff
	ProgressFile      string `yaml:"progress_file"`    // newline-delimited JSON progress feed for automation
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // append-only log file; empty defaults under data_dir
}

// SlackConfig holds Slack notification settings
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
	Enabled    bool   `yaml:"enabled"`
}

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	SuppressWarnings bool
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions reads configuration from a YAML file with options.
func LoadWithOptions(path string, opts LoadOptions) (*Config, error) {
	// Check file permissions before reading (warns if insecure)
	if warning := checkFilePermissions(path); warning != "" && !opts.SuppressWarnings {
		fmt.Fprint(os.Stderr, warning)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return LoadBytes(data)
}

// LoadBytes reads configuration from YAML bytes.
func LoadBytes(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultDataDir returns the default data directory for state storage.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".ecbridge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Config) applyDefaults() {
	// The source platform allows roughly one call per second; stay under it.
	if c.Source.RequestIntervalMS == 0 {
		c.Source.RequestIntervalMS = 1100
	}
	if c.Source.PageSize == 0 {
		c.Source.PageSize = 100
	}

	// The destination bucket refills at 2 calls/second.
	if c.Destination.RequestIntervalMS == 0 {
		c.Destination.RequestIntervalMS = 550
	}
	if c.Destination.PhoneCountryCode == "" {
		c.Destination.PhoneCountryCode = "+81"
	}

	if c.Migration.MaxRetries == 0 {
		c.Migration.MaxRetries = 5
	}
	if c.Migration.RetryBackoffMS == 0 {
		c.Migration.RetryBackoffMS = 1000
	}
	if c.Migration.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.Migration.DataDir = filepath.Join(home, ".ecbridge")
	} else {
		c.Migration.DataDir = expandTilde(c.Migration.DataDir)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(c.Migration.DataDir, "migration.log")
	} else {
		c.Logging.File = expandTilde(c.Logging.File)
	}
}

func (c *Config) validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.AccessToken == "" {
		return fmt.Errorf("source.access_token is required")
	}
	if c.Destination.BaseURL == "" {
		return fmt.Errorf("destination.base_url is required")
	}
	if c.Destination.AccessToken == "" {
		return fmt.Errorf("destination.access_token is required")
	}
	if c.Source.PageSize < 1 || c.Source.PageSize > 500 {
		return fmt.Errorf("source.page_size must be between 1 and 500, got %d", c.Source.PageSize)
	}
	for _, d := range []struct{ name, value string }{
		{"source.start_date", c.Source.StartDate},
		{"source.end_date", c.Source.EndDate},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD, got %q", d.name, d.value)
		}
	}
	return nil
}

// SourceInterval returns the minimum gap between source API calls.
func (c *Config) SourceInterval() time.Duration {
	return time.Duration(c.Source.RequestIntervalMS) * time.Millisecond
}

// DestinationInterval returns the minimum gap between destination API calls.
func (c *Config) DestinationInterval() time.Duration {
	return time.Duration(c.Destination.RequestIntervalMS) * time.Millisecond
}

// RetryBackoff returns the base wait for exponential retry backoff.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Migration.RetryBackoffMS) * time.Millisecond
}

// IDMapFile returns the path of the durable ID-map file.
func (c *Config) IDMapFile() string {
	return filepath.Join(c.Migration.DataDir, "idmap.yaml")
}

// SalesFile returns the path of the extracted-sales hand-off file.
func (c *Config) SalesFile() string {
	return filepath.Join(c.Migration.DataDir, "sales.json")
}

// ProductRowsFile returns the path of the pre-parsed product export rows.
func (c *Config) ProductRowsFile() string {
	return filepath.Join(c.Migration.DataDir, "products.json")
}

// CustomerRowsFile returns the path of the pre-parsed customer export rows.
func (c *Config) CustomerRowsFile() string {
	return filepath.Join(c.Migration.DataDir, "customers.json")
}

// Sanitized returns a copy of the config with sensitive fields redacted
func (c *Config) Sanitized() *Config {
	sanitized := *c // shallow copy

	sanitized.Source.AccessToken = "[REDACTED]"
	sanitized.Destination.AccessToken = "[REDACTED]"

	if sanitized.Slack.WebhookURL != "" {
		sanitized.Slack.WebhookURL = "[REDACTED]"
	}

	return &sanitized
}
