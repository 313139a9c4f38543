package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/tether/internal/config"
)

func newTestServeCmd(t *testing.T) *cobra.Command {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvPort, "")
	t.Setenv(config.EnvLogLevel, "")

	cmd := &cobra.Command{Use: "serve"}
	addConfigFlags(cmd)
	addServeFlags(cmd)
	return cmd
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tether.kdl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cmd := newTestServeCmd(t)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		file     bool
		env      string
		flag     string
		wantPort int
	}{
		{name: "file", file: true, wantPort: 4100},
		{name: "env over file", file: true, env: "4200", wantPort: 4200},
		{name: "flag over env", file: true, env: "4200", flag: "4300", wantPort: 4300},
		{name: "env only", env: "4400", wantPort: 4400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestServeCmd(t)
			if tt.file {
				path := writeConfig(t, "server {\n    port 4100\n    host \"127.0.0.1\"\n}\n")
				require.NoError(t, cmd.PersistentFlags().Set("config", path))
			}
			if tt.env != "" {
				t.Setenv(config.EnvPort, tt.env)
			}
			if tt.flag != "" {
				require.NoError(t, cmd.Flags().Set("port", tt.flag))
			}

			cfg, err := loadConfig(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			if tt.file {
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
			}
		})
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	cmd := newTestServeCmd(t)
	require.NoError(t, cmd.Flags().Set("host", "127.0.0.1"))
	require.NoError(t, cmd.Flags().Set("max-clients", "8"))
	require.NoError(t, cmd.Flags().Set("events", "true"))
	require.NoError(t, cmd.Flags().Set("events-addr", "127.0.0.1:9999"))
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "debug"))
	require.NoError(t, cmd.PersistentFlags().Set("log-format", "json"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8, cfg.Server.MaxClients)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Events.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("bad env port", func(t *testing.T) {
		cmd := newTestServeCmd(t)
		t.Setenv(config.EnvPort, "abc")
		_, err := loadConfig(cmd)
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		cmd := newTestServeCmd(t)
		require.NoError(t, cmd.Flags().Set("port", "70000"))
		_, err := loadConfig(cmd)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		cmd := newTestServeCmd(t)
		require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "none.kdl")))
		_, err := loadConfig(cmd)
		assert.ErrorContains(t, err, "load config")
	})
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 4500
	cfg.Server.WriteTimeout = 2 * time.Second

	sc := serverConfig(cfg)
	assert.Equal(t, "0.0.0.0:4500", sc.Addr())
	assert.Equal(t, 2*time.Second, sc.WriteTimeout)
	assert.Equal(t, cfg.Server.ReadBufferSize, sc.ReadBufferSize)
}

func TestCompletion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"completion", "bash"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "tether")
}
