// ABOUTME: Configuration loading and parsing for the budget tracker
// ABOUTME: Supports YAML files with environment variable expansion and defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete budget tracker configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig holds database mode and backend configuration
type StorageConfig struct {
	// Path is the local DuckDB file, or ":memory:" for an in-memory database
	Path string `yaml:"path"`

	// Mode is one of local, cloud, or hybrid
	Mode string `yaml:"mode"`

	// MotherDuckToken authenticates against MotherDuck (cloud/hybrid only)
	MotherDuckToken string `yaml:"motherduck_token"`

	// MotherDuckDatabase is the remote database name (default budget_app)
	MotherDuckDatabase string `yaml:"motherduck_database"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// Enabled turns bearer-token auth on for the HTTP API
	Enabled bool `yaml:"enabled"`

	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when no config file exists.
func Defaults() *Config {
	return &Config{
		Server:  ServerConfig{HTTPAddr: "127.0.0.1:8080"},
		Storage: StorageConfig{Path: "./budget.db", Mode: "local"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. If the environment variable is not set, it is
// replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	switch c.Storage.Mode {
	case "local", "cloud", "hybrid":
	default:
		return fmt.Errorf("storage.mode must be local, cloud, or hybrid (got %q)", c.Storage.Mode)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}

// ResolvePath returns the configuration file path to use. Priority:
//  1. explicit path argument (from a CLI flag)
//  2. BUDGETD_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/budgetd/config.yaml
//  4. ~/.config/budgetd/config.yaml
//
// The returned path may not exist; callers fall back to Defaults then.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("BUDGETD_CONFIG"); env != "" {
		return env
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "budgetd", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "budgetd", "config.yaml")
}
