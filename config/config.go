// Package config loads and validates the service configuration from a
// YAML file, with sane defaults for anything omitted.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitanogama/ocpp-manager/errors"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Call     CallConfig     `yaml:"call"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig configures the optional event broker. An empty URL
// disables event publishing entirely.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// CallConfig configures the outbound call protocol.
type CallConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "data/ocpp.db"},
		Call:     CallConfig{Timeout: 10 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML configuration file over the defaults and validates
// the result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.WrapFatal(
				fmt.Errorf("%w: %v", errors.ErrMissingConfig, err),
				"config", "Load", "read file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.WrapFatal(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"config", "Load", "parse yaml")
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run
// with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return invalid("database.path must not be empty")
	}
	if c.Call.Timeout <= 0 {
		return invalid("call.timeout must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("logging.format %q is not one of json, text", c.Logging.Format))
	}
	return nil
}

func invalid(detail string) error {
	return errors.WrapFatal(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, detail),
		"config", "Validate", "check values")
}
