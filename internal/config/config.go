// Package config loads the engine settings from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment configuration.
type Config struct {
	Log    LogConfig
	Buffer BufferConfig
	Diag   DiagConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Debug  bool   `envconfig:"IL_DEBUG" default:"false"`
	Level  string `envconfig:"IL_LOG_LEVEL" default:"info"`
	Format string `envconfig:"IL_LOG_FORMAT" default:"text"`
}

// BufferConfig holds the port defaults used when a component is created
// without an explicit port definition.
type BufferConfig struct {
	Count int `envconfig:"IL_BUFFER_COUNT" default:"4"`
	Size  int `envconfig:"IL_BUFFER_SIZE" default:"4096"`
}

// DiagConfig limits how often repeating diagnostics are logged.
type DiagConfig struct {
	// PerSecond is the number of diagnostics per category let through
	// every second.
	PerSecond int `envconfig:"IL_DIAG_RATE" default:"5"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Buffer: BufferConfig{
			Count: 4,
			Size:  4096,
		},
		Diag: DiagConfig{
			PerSecond: 5,
		},
	}
}

func (c *Config) validate() error {
	if c.Buffer.Count < 1 {
		return fmt.Errorf("IL_BUFFER_COUNT must be positive: %d", c.Buffer.Count)
	}
	if c.Buffer.Size < 1 {
		return fmt.Errorf("IL_BUFFER_SIZE must be positive: %d", c.Buffer.Size)
	}
	if c.Diag.PerSecond < 1 {
		return fmt.Errorf("IL_DIAG_RATE must be positive: %d", c.Diag.PerSecond)
	}
	return nil
}
