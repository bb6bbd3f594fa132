package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RunFlags holds flags for supervising a single bot from the command line.
type RunFlags struct {
	Name         string
	Python       string
	Module       string
	Script       string
	Symbols      string
	Interval     int
	Loop         bool
	LogLevel     string
	WorkDir      string
	EnvFile      string
	LogDir       string
	LogPrefix    string
	Console      bool
	RestartDelay time.Duration
	Once         bool
	Detached     bool
	HistoryDSN   string
}

// ServeFlags holds flags for the config-driven daemon.
type ServeFlags struct {
	ConfigPath string
}

// StatusFlags holds flags for querying a running daemon.
type StatusFlags struct {
	Name       string
	APIUrl     string
	APITimeout time.Duration
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentic-launcher",
		Short: "Launch and supervise the agentic-trader Python bots",
		Long: `agentic-launcher starts the external Python trading bots (FX, XAU, IDX,
trade monitor, ACMI dashboard), loads their env-files, writes timestamped
session logs, and relaunches crashed bots after a fixed delay.

Examples:
  agentic-launcher run --name=fx --module=fx_v46.fx_main_v46 \
      --symbols=EURUSD,GBPUSD --interval=60 --loop \
      --env-file=fx_v46/app/fx_v46.env --log-dir=logs
  agentic-launcher run --name=acmi --module=fx_v46.acmi.acmi_server --once
  agentic-launcher serve --config=launcher.toml
  agentic-launcher status --api-url=http://127.0.0.1:8390/api`,
	}
	root.AddCommand(
		createRunCommand(),
		createServeCommand(),
		createStatusCommand(),
	)
	return root
}

func createRunCommand() *cobra.Command {
	flags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Supervise a single bot",
		Long: `Launch one bot and supervise it. By default the bot is relaunched after
every exit (crash or clean) with a fixed delay, forever, until interrupted.
With --once the bot runs a single time and the launcher exits with the
bot's exit code (dashboard/server case).

Examples:
  agentic-launcher run --name=fx --module=fx_v46.fx_main_v46 --loop
  agentic-launcher run --name=monitor --script=fx_v46/trade/trade_monitor.py
  agentic-launcher run --name=acmi --module=fx_v46.acmi.acmi_server --once --detached`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, *flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.Name, "name", "", "bot name (required)")
	cmd.Flags().StringVar(&flags.Python, "python", "python3", "interpreter to launch the bot with")
	cmd.Flags().StringVar(&flags.Module, "module", "", "Python module, run as '<python> -m <module>'")
	cmd.Flags().StringVar(&flags.Script, "script", "", "script path, alternative to --module")
	cmd.Flags().StringVar(&flags.Symbols, "symbols", "", "comma-separated symbols passed to the bot")
	cmd.Flags().IntVar(&flags.Interval, "interval", 0, "bot cycle interval in seconds")
	cmd.Flags().BoolVar(&flags.Loop, "loop", false, "pass --loop through to the bot")
	cmd.Flags().StringVar(&flags.LogLevel, "loglevel", "INFO", "bot and launcher log level")
	cmd.Flags().StringVar(&flags.WorkDir, "workdir", "", "working directory for the bot")
	cmd.Flags().StringVar(&flags.EnvFile, "env-file", "", "KEY=VALUE env-file applied to the bot's environment")
	cmd.Flags().StringVar(&flags.LogDir, "log-dir", "", "directory for the timestamped session log (console output when empty)")
	cmd.Flags().StringVar(&flags.LogPrefix, "log-prefix", "", "session log filename prefix (defaults to the bot name)")
	cmd.Flags().BoolVar(&flags.Console, "console", false, "write bot output to the console instead of a log file")
	cmd.Flags().DurationVar(&flags.RestartDelay, "restart-delay", 10*time.Second, "wait between bot exit and relaunch")
	cmd.Flags().BoolVar(&flags.Once, "once", false, "launch once and exit with the bot's exit code")
	cmd.Flags().BoolVar(&flags.Detached, "detached", false, "once-mode: start the bot in a new session")
	cmd.Flags().StringVar(&flags.HistoryDSN, "history-dsn", "", "optional SQL DSN for lifecycle history (sqlite://... or postgres://...)")

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createServeCommand() *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [launcher.toml]",
		Short: "Supervise all configured bots and expose the status API",
		Long: `Start the launcher daemon: supervise every bot from the TOML config,
serve the HTTP status/control API, and optionally export Prometheus
metrics and SQL lifecycle history.

Examples:
  agentic-launcher serve launcher.toml
  agentic-launcher serve --config=launcher.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := flags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			if configPath == "" {
				return fmt.Errorf("config file required. Use --config=launcher.toml or provide as argument")
			}
			return runServe(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	return cmd
}

func createStatusCommand() *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status from a running daemon",
		Long: `Query the status API of a running 'serve' daemon.

Examples:
  agentic-launcher status
  agentic-launcher status --name=fx --api-url=http://127.0.0.1:8390/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "bot name (optional, all bots when empty)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "http://127.0.0.1:8390/api", "daemon API URL")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}
