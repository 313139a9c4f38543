package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/tether/internal/config"
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "Config file (default $XDG_CONFIG_HOME/tether/tether.kdl)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: console or json")
	cmd.PersistentFlags().String("log-file", "", "Write logs to a file instead of stderr")
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then the environment, then flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := flagValue(cmd, "config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if v, ok := flagValue(cmd, "log-level"); ok {
		cfg.Log.Level = v
	}
	if v, ok := flagValue(cmd, "log-format"); ok {
		cfg.Log.Format = v
	}
	if v, ok := flagValue(cmd, "log-file"); ok {
		cfg.Log.File = v
	}

	if v, ok := flagValue(cmd, "host"); ok {
		cfg.Server.Host = v
	}
	if err := intFlag(cmd, "port", &cfg.Server.Port); err != nil {
		return nil, err
	}
	if err := intFlag(cmd, "max-clients", &cfg.Server.MaxClients); err != nil {
		return nil, err
	}
	if v, ok := flagValue(cmd, "events"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("--events: %w", err)
		}
		cfg.Events.Enabled = enabled
	}
	if v, ok := flagValue(cmd, "events-addr"); ok {
		cfg.Events.Addr = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// flagValue returns a flag's value if it exists on cmd (locally or
// inherited) and was set explicitly.
func flagValue(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flag(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}

func intFlag(cmd *cobra.Command, name string, dst *int) error {
	v, ok := flagValue(cmd, name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	*dst = n
	return nil
}
