// Package config provides configuration management for the zoom-to-drive application
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMethodBasic exchanges client credentials over a basic-auth header.
// AuthMethodJWT signs a short-lived JWT and presents it as the bearer credential.
const (
	AuthMethodBasic = "basic"
	AuthMethodJWT   = "jwt"
)

// ZoomConfig holds Zoom API authentication and connection settings
type ZoomConfig struct {
	AccountID    string `yaml:"account_id" json:"account_id"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
	AuthMethod   string `yaml:"auth_method" json:"auth_method"`
}

// FolderRoute maps a topic keyword to a Drive folder ID. Routes are evaluated
// in the order they appear in the configuration file.
type FolderRoute struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	FolderID string `yaml:"folder_id" json:"folder_id"`
}

// GoogleConfig holds Google Drive and Sheets settings
type GoogleConfig struct {
	CredentialsFile string        `yaml:"credentials_file" json:"credentials_file"`
	SpreadsheetID   string        `yaml:"spreadsheet_id" json:"spreadsheet_id"`
	DefaultFolderID string        `yaml:"default_folder_id" json:"default_folder_id"`
	FolderRoutes    []FolderRoute `yaml:"folder_routes" json:"folder_routes"`
}

// SyncConfig holds transfer pipeline settings
type SyncConfig struct {
	LookbackDays        int    `yaml:"lookback_days" json:"lookback_days"`
	DeleteAfterTransfer bool   `yaml:"delete_after_transfer" json:"delete_after_transfer"`
	TopicPrefix         string `yaml:"topic_prefix" json:"topic_prefix"`
	PageDelayMillis     int    `yaml:"page_delay_millis" json:"page_delay_millis"`
	RetryAttempts       int    `yaml:"retry_attempts" json:"retry_attempts"`
	TimeoutSeconds      int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// PageDelay returns the inter-page throttle as a time.Duration
func (s SyncConfig) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMillis) * time.Millisecond
}

// TimeoutDuration returns the request timeout as a time.Duration
func (s SyncConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	Console    bool   `yaml:"console" json:"console"`
	JSONFormat bool   `yaml:"json_format" json:"json_format"`
}

// HostsConfig holds host allowlist settings
type HostsConfig struct {
	File         string `yaml:"file" json:"file"`
	CheckEnabled bool   `yaml:"check_enabled" json:"check_enabled"`
}

// Config represents the complete application configuration
type Config struct {
	Zoom    ZoomConfig    `yaml:"zoom" json:"zoom"`
	Google  GoogleConfig  `yaml:"google" json:"google"`
	Sync    SyncConfig    `yaml:"sync" json:"sync"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Hosts   HostsConfig   `yaml:"hosts" json:"hosts"`
}

// LoadConfig loads configuration from a YAML file with defaults and environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Load from YAML file
	if err := config.loadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	// Apply defaults
	config.setDefaults()

	// Override with environment variables
	config.loadFromEnvironment()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func (c *Config) loadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// setDefaults applies default values for missing configuration
func (c *Config) setDefaults() {
	// Zoom defaults
	if c.Zoom.BaseURL == "" {
		c.Zoom.BaseURL = "https://api.zoom.us/v2"
	}
	if c.Zoom.AuthMethod == "" {
		c.Zoom.AuthMethod = AuthMethodBasic
	}

	// Sync defaults
	if c.Sync.LookbackDays == 0 {
		c.Sync.LookbackDays = 7
	}
	if c.Sync.PageDelayMillis == 0 {
		c.Sync.PageDelayMillis = 500
	}
	if c.Sync.RetryAttempts == 0 {
		c.Sync.RetryAttempts = 3
	}
	if c.Sync.TimeoutSeconds == 0 {
		c.Sync.TimeoutSeconds = 300
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "./zoom-to-drive.log"
	}
	// Console defaults to true (if not explicitly configured)
	// Note: This will always set to true, override in YAML if false is desired
	c.Logging.Console = true
}

// loadFromEnvironment overrides configuration with environment variables
func (c *Config) loadFromEnvironment() {
	if val := os.Getenv("ZOOM_ACCOUNT_ID"); val != "" {
		c.Zoom.AccountID = val
	}
	if val := os.Getenv("ZOOM_CLIENT_ID"); val != "" {
		c.Zoom.ClientID = val
	}
	if val := os.Getenv("ZOOM_CLIENT_SECRET"); val != "" {
		c.Zoom.ClientSecret = val
	}
	if val := os.Getenv("ZOOM_BASE_URL"); val != "" {
		c.Zoom.BaseURL = val
	}

	if val := os.Getenv("GOOGLE_CREDENTIALS_FILE"); val != "" {
		c.Google.CredentialsFile = val
	}
	if val := os.Getenv("GOOGLE_SPREADSHEET_ID"); val != "" {
		c.Google.SpreadsheetID = val
	}
	if val := os.Getenv("GOOGLE_DEFAULT_FOLDER_ID"); val != "" {
		c.Google.DefaultFolderID = val
	}
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	// Validate required Zoom configuration
	if c.Zoom.AccountID == "" {
		return fmt.Errorf("zoom.account_id is required")
	}
	if c.Zoom.ClientID == "" {
		return fmt.Errorf("zoom.client_id is required")
	}
	if c.Zoom.ClientSecret == "" {
		return fmt.Errorf("zoom.client_secret is required")
	}
	if c.Zoom.AuthMethod != AuthMethodBasic && c.Zoom.AuthMethod != AuthMethodJWT {
		return fmt.Errorf("zoom.auth_method must be %q or %q", AuthMethodBasic, AuthMethodJWT)
	}

	// Validate required Google configuration
	if c.Google.CredentialsFile == "" {
		return fmt.Errorf("google.credentials_file is required")
	}
	if c.Google.SpreadsheetID == "" {
		return fmt.Errorf("google.spreadsheet_id is required")
	}
	if c.Google.DefaultFolderID == "" {
		return fmt.Errorf("google.default_folder_id is required")
	}
	for i, route := range c.Google.FolderRoutes {
		if route.Keyword == "" {
			return fmt.Errorf("google.folder_routes[%d].keyword is required", i)
		}
		if route.FolderID == "" {
			return fmt.Errorf("google.folder_routes[%d].folder_id is required", i)
		}
	}

	// Validate sync configuration
	if c.Sync.LookbackDays < 0 {
		return fmt.Errorf("sync.lookback_days must be >= 0")
	}
	if c.Sync.RetryAttempts < 0 {
		return fmt.Errorf("sync.retry_attempts must be >= 0")
	}
	if c.Sync.TimeoutSeconds <= 0 {
		return fmt.Errorf("sync.timeout_seconds must be greater than 0")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}
