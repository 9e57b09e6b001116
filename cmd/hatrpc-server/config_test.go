package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port: 9000
eager: true
advertise:
  enabled: true
  name: hatrpc-kitchen
  interface: wlan0
log:
  level: debug
  protocol: /var/log/hatrpc/server.hlog
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host, "unset keys keep their defaults")
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Eager)
	assert.False(t, cfg.Mock)
	assert.Equal(t, AdvertiseConfig{Enabled: true, Name: "hatrpc-kitchen", Interface: "wlan0"}, cfg.Advertise)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/var/log/hatrpc/server.hlog", cfg.Log.Protocol)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "port: [1"},
		{"port", "port: 65534"},
		{"level", "log:\n  level: loud"},
		{"instance", "advertise:\n  enabled: true\n  name: " + strings.Repeat("x", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "host: 127.0.0.1\nport: 9000\nmock: true\n")

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100", "--log-level", "warn"}))

	flags := DefaultConfig()
	flags.Port = 9100
	flags.Log.Level = "warn"

	cfg, err := resolveConfig(cmd, path, flags)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.Mock, "flags left unset do not override the file")
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "hatrpc-kitchen", instanceName("hatrpc-kitchen"))
	assert.NotEmpty(t, instanceName(""))
}
