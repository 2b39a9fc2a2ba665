// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for calcore configuration.
	DefaultConfigDir = ".calcore"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name inside the config directory.
	DefaultDatabaseFile = "calcore.db"
)

// Defaults applied before the config file and the environment are read.
const (
	DefaultCacheTTL             = 24 * time.Hour
	DefaultCacheMaxEntries      = 10000
	DefaultCacheCleanupInterval = 10 * time.Minute
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config holds static configuration (read-only after load).
type Config struct {
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
	Cache  CacheConfig  `yaml:"cache,omitempty"`
	Log    LogConfig    `yaml:"log,omitempty"`

	// User is the principal commands act as when --as is not given.
	User string `yaml:"user,omitempty" env:"CALCORE_USER"`
}

// SQLiteConfig holds configuration for the SQLite event store.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database. Relative paths are
	// resolved against the project directory.
	Path string `yaml:"path,omitempty" env:"CALCORE_DB_PATH"`
}

// CacheConfig holds configuration for the in-process read cache.
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl,omitempty" env:"CALCORE_CACHE_TTL"`
	MaxEntries      int           `yaml:"max_entries,omitempty" env:"CALCORE_CACHE_MAX_ENTRIES"`
	CleanupInterval time.Duration `yaml:"cleanup_interval,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"CALCORE_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"CALCORE_LOG_FORMAT"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			TTL:             DefaultCacheTTL,
			MaxEntries:      DefaultCacheMaxEntries,
			CleanupInterval: DefaultCacheCleanupInterval,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load loads configuration from the .calcore directory in the given path,
// then applies environment overrides.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'calcore init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	cfg.resolvePaths(basePath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be fixed by defaults.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)

	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level %q (want one of %s)", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format %q (want one of %s)", c.Log.Format, strings.Join(logFormats, ", "))
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache ttl %s", c.Cache.TTL)
	}
	return nil
}

func (c *Config) resolvePaths(basePath string) {
	switch {
	case c.SQLite.Path == "":
		c.SQLite.Path = DatabasePath(basePath)
	case c.SQLite.Path == ":memory:", filepath.IsAbs(c.SQLite.Path):
	default:
		c.SQLite.Path = filepath.Join(basePath, c.SQLite.Path)
	}
}

// ConfigDir returns the path to the .calcore config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// DatabasePath returns the default SQLite database path.
func DatabasePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultDatabaseFile)
}

// Exists checks if a calcore config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
