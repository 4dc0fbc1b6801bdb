package cxgraph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds embedder-facing settings.
type Config struct {
	// LogLevel is a logrus level name (debug, info, warn, error). Empty
	// leaves the global level untouched.
	LogLevel string `yaml:"log_level"`
	// SeedFile is an optional exchange document loaded at Open.
	SeedFile string `yaml:"seed_file"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
