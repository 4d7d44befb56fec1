package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for gets-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// APIKey, when set, locks the HTTP surface behind a bearer token.
	// Empty means the surface is open (local development).
	APIKey string `yaml:"-" env:"API_KEY"` // Secret - not in YAML

	// Record store connection
	Airtable AirtableConfig `yaml:"airtable"`

	// Schema lock snapshot
	SchemaLock SchemaLockConfig `yaml:"schema_lock"`
}

// AirtableConfig holds the record store connection settings.
type AirtableConfig struct {
	// Token authenticates every store request. Without it the engine runs
	// in degraded mode: dashboards answer empty, lookups answer 503.
	Token string `yaml:"-" env:"AIRTABLE_API_TOKEN"` // Secret - not in YAML

	BaseID         string `yaml:"base_id" env:"AIRTABLE_BASE_ID" env-default:""`
	BaseURL        string `yaml:"base_url" env:"AIRTABLE_BASE_URL" env-default:""`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"AIRTABLE_TIMEOUT_SECONDS" env-default:"60"`
}

// IsConfigured reports whether enough is set to build a store client.
func (c *AirtableConfig) IsConfigured() bool {
	return c.Token != "" && c.BaseID != ""
}

// Timeout returns the per-request HTTP timeout.
func (c *AirtableConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SchemaLockConfig locates the schema lock snapshot.
type SchemaLockConfig struct {
	// Path is an explicit snapshot location; it wins over the defaults.
	Path string `yaml:"path" env:"SCHEMA_LOCK_PATH" env-default:""`

	// Required makes a missing snapshot a startup failure instead of
	// degraded mode.
	Required bool `yaml:"required" env:"SCHEMA_LOCK_REQUIRED" env-default:"false"`
}

// SearchPaths returns lock locations in priority order.
func (c *SchemaLockConfig) SearchPaths() []string {
	if c.Path != "" {
		return []string{c.Path}
	}
	return []string{"schema.lock.json", "config/schema.lock.json"}
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the environment alone
// is enough. The version parameter is injected at build time and set on
// the returned Config. Secrets (AIRTABLE_API_TOKEN, API_KEY) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}
