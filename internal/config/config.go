package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	"github.com/bpardiwa1/agentic-launcher/internal/logger"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Launcher LauncherConfig `toml:"launcher" mapstructure:"launcher"`
	Server   *ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics  *MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Bots     []BotConfig    `toml:"bots" mapstructure:"bots"`
}

// LauncherConfig carries daemon-wide defaults. Per-bot settings override it.
type LauncherConfig struct {
	LogDir       string        `toml:"log_dir" mapstructure:"log_dir"`
	Console      bool          `toml:"console" mapstructure:"console"`
	RestartDelay time.Duration `toml:"restart_delay" mapstructure:"restart_delay"`
	HistoryDSN   string        `toml:"history_dsn" mapstructure:"history_dsn"`
	LogLevel     string        `toml:"loglevel" mapstructure:"loglevel"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type BotConfig struct {
	Name         string                `toml:"name" mapstructure:"name"`
	Python       string                `toml:"python" mapstructure:"python"`
	Module       string                `toml:"module" mapstructure:"module"`
	Script       string                `toml:"script" mapstructure:"script"`
	Symbols      string                `toml:"symbols" mapstructure:"symbols"`
	Interval     int                   `toml:"interval" mapstructure:"interval"`
	Loop         bool                  `toml:"loop" mapstructure:"loop"`
	LogLevel     string                `toml:"loglevel" mapstructure:"loglevel"`
	ExtraArgs    []string              `toml:"extra_args" mapstructure:"extra_args"`
	WorkDir      string                `toml:"workdir" mapstructure:"workdir"`
	EnvFile      string                `toml:"env_file" mapstructure:"env_file"`
	Env          []string              `toml:"env" mapstructure:"env"`
	Mode         string                `toml:"mode" mapstructure:"mode"`
	Detached     bool                  `toml:"detached" mapstructure:"detached"`
	RestartDelay time.Duration         `toml:"restart_delay" mapstructure:"restart_delay"`
	Log          *logger.SessionConfig `toml:"log" mapstructure:"log"`
}

// Config is the resolved configuration handed to the daemon.
type Config struct {
	Launcher LauncherConfig
	Server   *ServerConfig
	Metrics  *MetricsConfig
	Specs    []bot.Spec
}

// Load reads a TOML config file and resolves bot specs with launcher-level
// defaults applied. Relative log dirs and env-files resolve against the
// config file's directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(fc.Bots) == 0 {
		return nil, fmt.Errorf("config %s: no [[bots]] defined", path)
	}

	base := filepath.Dir(path)
	cfg := &Config{Launcher: fc.Launcher, Server: fc.Server, Metrics: fc.Metrics}
	if cfg.Launcher.RestartDelay <= 0 {
		cfg.Launcher.RestartDelay = 10 * time.Second
	}
	if cfg.Launcher.LogDir != "" && !filepath.IsAbs(cfg.Launcher.LogDir) {
		cfg.Launcher.LogDir = filepath.Join(base, cfg.Launcher.LogDir)
	}
	if cfg.Launcher.HistoryDSN != "" {
		cfg.Launcher.HistoryDSN = resolveDSN(cfg.Launcher.HistoryDSN, base)
	}

	seen := make(map[string]bool, len(fc.Bots))
	for _, bc := range fc.Bots {
		if bc.Name == "" {
			return nil, fmt.Errorf("config %s: bot requires name", path)
		}
		if seen[bc.Name] {
			return nil, fmt.Errorf("config %s: duplicate bot %q", path, bc.Name)
		}
		seen[bc.Name] = true
		spec, err := resolveBot(bc, cfg.Launcher, base)
		if err != nil {
			return nil, fmt.Errorf("config %s: bot %s: %w", path, bc.Name, err)
		}
		cfg.Specs = append(cfg.Specs, spec)
	}
	return cfg, nil
}

func resolveBot(bc BotConfig, lc LauncherConfig, base string) (bot.Spec, error) {
	mode := bot.ModeLoop
	switch bc.Mode {
	case "", string(bot.ModeLoop):
	case string(bot.ModeOnce):
		mode = bot.ModeOnce
	default:
		return bot.Spec{}, fmt.Errorf("unknown mode %q (want loop or once)", bc.Mode)
	}

	delay := bc.RestartDelay
	if delay <= 0 {
		delay = lc.RestartDelay
	}
	logLevel := bc.LogLevel
	if logLevel == "" {
		logLevel = lc.LogLevel
	}

	logCfg := logger.SessionConfig{Dir: lc.LogDir, Console: lc.Console}
	if bc.Log != nil {
		if bc.Log.Dir != "" {
			logCfg.Dir = bc.Log.Dir
			if !filepath.IsAbs(logCfg.Dir) {
				logCfg.Dir = filepath.Join(base, logCfg.Dir)
			}
		}
		logCfg.Prefix = bc.Log.Prefix
		logCfg.Console = logCfg.Console || bc.Log.Console
		logCfg.MaxSizeMB = bc.Log.MaxSizeMB
		logCfg.MaxBackups = bc.Log.MaxBackups
		logCfg.MaxAgeDays = bc.Log.MaxAgeDays
		logCfg.Compress = bc.Log.Compress
	}

	envFile := bc.EnvFile
	if envFile != "" && !filepath.IsAbs(envFile) {
		envFile = filepath.Join(base, envFile)
	}
	script := bc.Script
	if script != "" && !filepath.IsAbs(script) {
		script = filepath.Join(base, script)
	}

	spec := bot.Spec{
		Name:         bc.Name,
		Python:       bc.Python,
		Module:       bc.Module,
		Script:       script,
		Symbols:      bc.Symbols,
		Interval:     bc.Interval,
		Loop:         bc.Loop,
		LogLevel:     logLevel,
		ExtraArgs:    bc.ExtraArgs,
		WorkDir:      bc.WorkDir,
		EnvFile:      envFile,
		Env:          bc.Env,
		Mode:         mode,
		Detached:     bc.Detached,
		RestartDelay: delay,
		Log:          logCfg,
	}
	return spec.Normalized(), nil
}

// resolveDSN anchors sqlite file DSNs to the config directory; postgres
// URLs pass through untouched.
func resolveDSN(dsn, base string) string {
	const pfx = "sqlite://"
	if len(dsn) > len(pfx) && dsn[:len(pfx)] == pfx {
		p := dsn[len(pfx):]
		if p != ":memory:" && !filepath.IsAbs(p) {
			return pfx + filepath.Join(base, p)
		}
	}
	return dsn
}
