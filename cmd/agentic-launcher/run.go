package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	"github.com/bpardiwa1/agentic-launcher/internal/history"
	"github.com/bpardiwa1/agentic-launcher/internal/logger"
	"github.com/bpardiwa1/agentic-launcher/internal/supervisor"
)

// runRun supervises a single bot built from flags. Loop mode blocks until a
// signal arrives; once mode exits with the bot's own exit code.
func runRun(cmd *cobra.Command, flags RunFlags, extraArgs []string) error {
	mode := bot.ModeLoop
	if flags.Once {
		mode = bot.ModeOnce
	}
	spec := bot.Spec{
		Name:         flags.Name,
		Python:       flags.Python,
		Module:       flags.Module,
		Script:       flags.Script,
		Symbols:      flags.Symbols,
		Interval:     flags.Interval,
		Loop:         flags.Loop,
		LogLevel:     flags.LogLevel,
		ExtraArgs:    extraArgs,
		WorkDir:      flags.WorkDir,
		EnvFile:      flags.EnvFile,
		Mode:         mode,
		Detached:     flags.Detached,
		RestartDelay: flags.RestartDelay,
		Log: logger.SessionConfig{
			Dir:     flags.LogDir,
			Prefix:  flags.LogPrefix,
			Console: flags.Console,
		},
	}

	log := logger.New(cmd.ErrOrStderr(), flags.LogLevel)
	sup := supervisor.New(spec, bot.ExecLauncher{}, log)

	if flags.HistoryDSN != "" {
		sink, err := history.NewSQLSinkFromDSN(flags.HistoryDSN)
		if err != nil {
			// History is an audit trail, not a launch dependency.
			log.Warn("history sink disabled", "dsn", flags.HistoryDSN, "error", err)
		} else {
			defer func() { _ = sink.Close() }()
			sup.SetSink(sink)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := sup.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted, shutting down")
		return nil
	}
	if err != nil {
		return err
	}
	if mode == bot.ModeOnce {
		if code := sup.Snapshot().LastExitCode; code != 0 {
			os.Exit(code)
		}
	}
	return nil
}

// shutdownGrace is how long serve waits for supervisors to wind down after
// a signal before giving up.
const shutdownGrace = 10 * time.Second
