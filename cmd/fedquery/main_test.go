package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliTestConfig = `
connectors:
  loopback:
    enabled: true
    default: demo
    instances:
      demo: {row_count: 1}
`

func writeCLIConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configPath = ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fedquery ")
}

func TestConnectorsCmd(t *testing.T) {
	_, err := execute(t, "connectors", "--config", writeCLIConfig(t, cliTestConfig))
	assert.NoError(t, err)
}

func TestConnectorsCmd_MissingConfig(t *testing.T) {
	_, err := execute(t, "connectors", "--config", "/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestMigrateCmd_RequiresDSN(t *testing.T) {
	_, err := execute(t, "migrate", "up", "--config", writeCLIConfig(t, cliTestConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
}

func TestServeCmd_InvalidTransport(t *testing.T) {
	t.Cleanup(func() { serveTransport = "" })
	_, err := execute(t, "serve", "--transport", "carrier-pigeon", "--config", writeCLIConfig(t, cliTestConfig))
	assert.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	configPath = ""
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}
