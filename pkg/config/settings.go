// Package config loads tcpfront's two configuration inputs: the YAML
// runtime settings (logging, stats reporting) and the proxy configuration
// file whose directives are dispatched through the listener registry.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"tcpfront/pkg/logging"
)

// Settings are the runtime knobs that are not part of the proxy grammar.
type Settings struct {
	Logging LoggingSettings `yaml:"logging"`
	Stats   StatsSettings   `yaml:"stats"`
}

// LoggingSettings configures the logging package.
type LoggingSettings struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// File enables rotating file output when non-empty.
	File string `yaml:"file"`

	// MaxSize is the rotation threshold in megabytes.
	MaxSize int `yaml:"maxSize"`

	// MaxBackups is how many rotated files to keep.
	MaxBackups int `yaml:"maxBackups"`

	// MaxAge is the retention of rotated files in days.
	MaxAge int `yaml:"maxAge"`
}

// StatsSettings configures the periodic traffic reporter.
type StatsSettings struct {
	// IntervalSeconds between reports; zero disables reporting.
	IntervalSeconds int `yaml:"intervalSeconds"`
}

// DefaultSettings returns the defaults used when no settings file is given.
func DefaultSettings() *Settings {
	return &Settings{
		Logging: LoggingSettings{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadSettings reads a YAML settings file over the given defaults.
func LoadSettings(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

// LoadSettingsFromEnv applies environment overrides on top of file values.
func LoadSettingsFromEnv(s *Settings) {
	if v := os.Getenv("TCPFRONT_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := os.Getenv("TCPFRONT_LOG_FILE"); v != "" {
		s.Logging.File = v
	}
	if v := os.Getenv("TCPFRONT_STATS_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.Stats.IntervalSeconds = n
		}
	}
}

// Validate checks the settings for consistency.
func (s *Settings) Validate() error {
	if _, err := logging.ParseLevel(s.Logging.Level); err != nil {
		return err
	}
	if s.Stats.IntervalSeconds < 0 {
		return fmt.Errorf("invalid stats interval: %d", s.Stats.IntervalSeconds)
	}
	return nil
}

// ApplyLogging pushes the logging settings into the logging package.
func (s *Settings) ApplyLogging() error {
	level, err := logging.ParseLevel(s.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	if s.Logging.File != "" {
		return logging.EnableFileOutput(s.Logging.File,
			s.Logging.MaxSize, s.Logging.MaxBackups, s.Logging.MaxAge)
	}
	return nil
}
