package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "launcher.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleTOML = `
[launcher]
log_dir = "logs"
restart_delay = "15s"
history_dsn = "sqlite://logs/launcher_history.db"
loglevel = "INFO"

[server]
listen = "127.0.0.1:8390"
base_path = "/api"

[metrics]
enabled = true
listen = "127.0.0.1:9097"

[[bots]]
name = "fx"
module = "fx_v46.fx_main_v46"
symbols = "EURUSD,GBPUSD,USDJPY"
interval = 60
loop = true
env_file = "fx_v46/app/fx_v46.env"
[bots.log]
prefix = "FX"

[[bots]]
name = "acmi"
module = "fx_v46.acmi.acmi_server"
mode = "once"
loglevel = "DEBUG"
restart_delay = "5s"
`

func TestLoadResolvesSpecs(t *testing.T) {
	path := writeConfig(t, sampleTOML)
	base := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Specs, 2)

	fx := cfg.Specs[0]
	assert.Equal(t, "fx", fx.Name)
	assert.Equal(t, "python3", fx.Python, "python default applied")
	assert.Equal(t, bot.ModeLoop, fx.Mode)
	assert.Equal(t, 15*time.Second, fx.RestartDelay, "launcher-level delay inherited")
	assert.Equal(t, "INFO", fx.LogLevel, "launcher-level loglevel inherited")
	assert.Equal(t, filepath.Join(base, "fx_v46/app/fx_v46.env"), fx.EnvFile)
	assert.Equal(t, filepath.Join(base, "logs"), fx.Log.Dir)
	assert.Equal(t, "FX", fx.Log.Prefix)

	acmi := cfg.Specs[1]
	assert.Equal(t, bot.ModeOnce, acmi.Mode)
	assert.Equal(t, 5*time.Second, acmi.RestartDelay, "per-bot delay wins")
	assert.Equal(t, "DEBUG", acmi.LogLevel)

	require.NotNil(t, cfg.Server)
	assert.Equal(t, "127.0.0.1:8390", cfg.Server.Listen)
	require.NotNil(t, cfg.Metrics)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "sqlite://"+filepath.Join(base, "logs/launcher_history.db"), cfg.Launcher.HistoryDSN)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"no bots", "[launcher]\nlog_dir = \"logs\"\n"},
		{"unnamed bot", "[[bots]]\nmodule = \"m\"\n"},
		{"duplicate names", "[[bots]]\nname = \"fx\"\nmodule = \"m\"\n[[bots]]\nname = \"fx\"\nmodule = \"m\"\n"},
		{"bad mode", "[[bots]]\nname = \"fx\"\nmodule = \"m\"\nmode = \"sometimes\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.toml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestResolveDSN(t *testing.T) {
	assert.Equal(t, "sqlite:///abs/x.db", resolveDSN("sqlite:///abs/x.db", "/cfg"))
	assert.Equal(t, "sqlite:///cfg/logs/x.db", resolveDSN("sqlite://logs/x.db", "/cfg"))
	assert.Equal(t, "sqlite://:memory:", resolveDSN("sqlite://:memory:", "/cfg"))
	assert.Equal(t, "postgres://u@h/db", resolveDSN("postgres://u@h/db", "/cfg"))
}
