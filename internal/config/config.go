// Package config contains configuration types for tether.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvPort     = "TETHER_PORT"
	EnvLogLevel = "TETHER_LOG_LEVEL"
)

// Config holds the complete tether configuration.
type Config struct {
	// Version is the config file version.
	Version string `json:"version"`

	// Server holds listener settings.
	Server ServerSettings `json:"server"`

	// Events configures the websocket event feed.
	Events EventsSettings `json:"events"`

	// Log configures structured logging.
	Log LogSettings `json:"log"`
}

// ServerSettings holds listener and session settings.
type ServerSettings struct {
	// Host is the interface to bind.
	Host string `json:"host"`
	// Port is the TCP port agents connect to.
	Port int `json:"port"`
	// MaxClients caps concurrent sessions (0 = unlimited).
	MaxClients int `json:"max_clients"`
	// WriteTimeout bounds each directive write (0 = no timeout).
	WriteTimeout time.Duration `json:"write_timeout"`
	// ReadBufferSize is the per-session read buffer size in bytes.
	ReadBufferSize int `json:"read_buffer_size"`
}

// EventsSettings configures the event feed.
type EventsSettings struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// LogSettings configures the logger.
type LogSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// Format is "console" or "json".
	Format string `json:"format"`
	// File is an output path; empty means stderr.
	File string `json:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerSettings{
			Host:           "0.0.0.0",
			Port:           3001,
			MaxClients:     0, // Unbounded
			WriteTimeout:   10 * time.Second,
			ReadBufferSize: 4096,
		},
		Events: EventsSettings{
			Enabled: false,
			Addr:    "127.0.0.1:3002",
		},
		Log: LogSettings{
			Level:  "warn",
			Format: "console",
		},
	}
}

// ApplyEnv overrides settings from the process environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxClients < 0 {
		return fmt.Errorf("server max-clients must not be negative")
	}
	if c.Server.ReadBufferSize <= 0 {
		return fmt.Errorf("server read-buffer must be positive")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write-timeout must not be negative")
	}
	if c.Events.Enabled && c.Events.Addr == "" {
		return fmt.Errorf("events enabled without an address")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
