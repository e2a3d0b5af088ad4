package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolbelt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeSettings(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, filepath.Join("config", "mcp_config.json"), cfg.Document.Path)
	assert.Equal(t, "servers", cfg.Document.RootKey)
	assert.Equal(t, "fail", cfg.Document.PlaceholderPolicy)
	assert.Equal(t, "toolbelt", cfg.Launcher.ClientName)
	assert.Equal(t, 0, cfg.Launcher.CallsPerMinute)
}

func TestLoadFile_Values(t *testing.T) {
	cfg, err := LoadFile(writeSettings(t, `
document:
  path: /etc/toolbelt/servers.yaml
  root_key: mcpServers
  placeholder_policy: keep
launcher:
  calls_per_minute: 30
storage:
  db_path: ~/data/tb.db
`))
	require.NoError(t, err)

	assert.Equal(t, "/etc/toolbelt/servers.yaml", cfg.Document.Path)
	assert.Equal(t, 30, cfg.Launcher.CallsPerMinute)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "data", "tb.db"), cfg.Storage.DBPath)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, mcpconfig.PolicyKeep, policy)

	l, err := cfg.Loader()
	require.NoError(t, err)
	set, err := l.Load([]byte(`{"mcpServers":{"a":{"command":"x","env":{"K":"${NOPE_NOT_SET}"}}}}`), mcpconfig.MapEnvironment{})
	require.NoError(t, err)
	a, _ := set.Get("a")
	assert.Equal(t, "${NOPE_NOT_SET}", a.Env["K"])
}

func TestLoadFile_BadPolicy(t *testing.T) {
	_, err := LoadFile(writeSettings(t, "document:\n  placeholder_policy: shrug\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder_policy")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("MCP_CONFIG_PATH", "/srv/mcp.json")
	t.Setenv("TOOLBELT_SERVER_PORT", "7070")

	cfg, err := LoadFile(writeSettings(t, "storage:\n  db_path: /tmp/tb.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/mcp.json", cfg.Document.Path)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_NoSettingsFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
