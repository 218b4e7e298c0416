package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional on-disk configuration. Flags take precedence over
// file values.
type Config struct {
	// DataDir is where the document stores and manifest live.
	DataDir string `yaml:"dataDir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// StoreVersion is the declared store-format version; bumping it forces a
	// schema reconciliation on the next open.
	StoreVersion int `yaml:"storeVersion"`
	// Namespace is mixed into minted document ids.
	Namespace string `yaml:"namespace"`
}

func defaultConfig() Config {
	return Config{
		DataDir:      "./data",
		LogLevel:     "info",
		StoreVersion: 1,
		Namespace:    "db-diagram",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	if c.StoreVersion <= 0 {
		return fmt.Errorf("storeVersion must be positive, got %d", c.StoreVersion)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// loadConfig reads path over the defaults. A missing file is not an error
// when the path was not explicitly requested.
func loadConfig(path string, required bool) (Config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
