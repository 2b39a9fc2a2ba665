package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# calcore configuration

sqlite:
  # path: .calcore/calcore.db (or set CALCORE_DB_PATH env var)

cache:
  ttl: 24h
  max_entries: 10000
  cleanup_interval: 10m

log:
  level: info   # debug, info, warn, error
  format: text  # text, json

# user: alice (default principal; or set CALCORE_USER env var)
`

// WriteDefault creates the .calcore directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)
	configFile := filepath.Join(configDir, DefaultConfigFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
