// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Input files
	DataDir   string
	TrainFile string
	TestFile  string

	// Audit sink (optional)
	AuditEnabled bool
	Postgres     *PostgresConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:      getEnv("DATA_DIR", "data"),
		TrainFile:    getEnv("TRAIN_FILE", "train.csv"),
		TestFile:     getEnv("TEST_FILE", "test.csv"),
		AuditEnabled: getEnvAsBool("AUDIT_ENABLED", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
	}

	// Postgres is only required when the audit sink is on
	if cfg.AuditEnabled {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads key/value pairs from path without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}

	if c.TrainFile == "" || c.TestFile == "" {
		return errors.New("train and test file names are required")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	if c.AuditEnabled && c.Postgres == nil {
		return errors.New("postgreSQL configuration is required when audit is enabled")
	}

	return nil
}

// TrainPath returns the full path of the training split
func (c *Config) TrainPath() string {
	return filepath.Join(c.DataDir, c.TrainFile)
}

// TestPath returns the full path of the testing split
func (c *Config) TestPath() string {
	return filepath.Join(c.DataDir, c.TestFile)
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
