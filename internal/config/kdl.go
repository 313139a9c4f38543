package config

import (
	"os"
	"path/filepath"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// ConfigFile is the KDL configuration file name.
const ConfigFile = "tether.kdl"

// KDLConfig represents the KDL configuration structure.
// Uses kdl struct tags for unmarshaling.
type KDLConfig struct {
	Version string     `kdl:"version"`
	Server  KDLServer  `kdl:"server"`
	Events  *KDLEvents `kdl:"events"`
	Log     KDLLog     `kdl:"log"`
}

// KDLServer holds listener settings from KDL.
type KDLServer struct {
	Host         string `kdl:"host"`
	Port         int    `kdl:"port"`
	MaxClients   int    `kdl:"max-clients"`
	WriteTimeout int    `kdl:"write-timeout"` // seconds
	ReadBuffer   int    `kdl:"read-buffer"`
}

// KDLEvents holds event feed settings from KDL.
type KDLEvents struct {
	Enabled bool   `kdl:"enabled"`
	Addr    string `kdl:"addr"`
}

// KDLLog holds logging settings from KDL.
type KDLLog struct {
	Level  string `kdl:"level"`
	Format string `kdl:"format"`
	File   string `kdl:"file"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/tether/tether.kdl, falling back
// to ~/.config. It returns "" when no home directory can be determined.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "tether", ConfigFile)
}

// Load reads the configuration at path, or the default location when path is
// empty. A missing default file yields defaults; a missing explicit file is
// an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
		if path == "" {
			return DefaultConfig(), nil
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseKDLConfig(string(data))
}

// ParseKDLConfig parses KDL configuration data on top of the defaults.
func ParseKDLConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, err
	}

	return kdlConfigToConfig(&kdlCfg), nil
}

// kdlConfigToConfig converts KDL config to our Config type. Zero values keep
// the defaults.
func kdlConfigToConfig(kdlCfg *KDLConfig) *Config {
	cfg := DefaultConfig()

	if kdlCfg.Version != "" {
		cfg.Version = kdlCfg.Version
	}

	// Server
	if kdlCfg.Server.Host != "" {
		cfg.Server.Host = kdlCfg.Server.Host
	}
	if kdlCfg.Server.Port > 0 {
		cfg.Server.Port = kdlCfg.Server.Port
	}
	if kdlCfg.Server.MaxClients > 0 {
		cfg.Server.MaxClients = kdlCfg.Server.MaxClients
	}
	if kdlCfg.Server.WriteTimeout > 0 {
		cfg.Server.WriteTimeout = time.Duration(kdlCfg.Server.WriteTimeout) * time.Second
	}
	if kdlCfg.Server.ReadBuffer > 0 {
		cfg.Server.ReadBufferSize = kdlCfg.Server.ReadBuffer
	}

	// Events
	if kdlCfg.Events != nil {
		cfg.Events.Enabled = kdlCfg.Events.Enabled
		if kdlCfg.Events.Addr != "" {
			cfg.Events.Addr = kdlCfg.Events.Addr
		}
	}

	// Log
	if kdlCfg.Log.Level != "" {
		cfg.Log.Level = kdlCfg.Log.Level
	}
	if kdlCfg.Log.Format != "" {
		cfg.Log.Format = kdlCfg.Log.Format
	}
	cfg.Log.File = kdlCfg.Log.File

	return cfg
}
