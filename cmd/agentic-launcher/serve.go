package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	"github.com/bpardiwa1/agentic-launcher/internal/config"
	"github.com/bpardiwa1/agentic-launcher/internal/history"
	"github.com/bpardiwa1/agentic-launcher/internal/logger"
	"github.com/bpardiwa1/agentic-launcher/internal/metrics"
	"github.com/bpardiwa1/agentic-launcher/internal/server"
	"github.com/bpardiwa1/agentic-launcher/internal/supervisor"
)

// runServe supervises every configured bot and serves the status API until
// a signal arrives.
func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cmd.ErrOrStderr(), cfg.Launcher.LogLevel)

	// Preflight every bot before launching any: a broken spec must fail the
	// daemon, not loop forever half-configured.
	for _, spec := range cfg.Specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	var sink history.Sink
	if cfg.Launcher.HistoryDSN != "" {
		sqlSink, err := history.NewSQLSinkFromDSN(cfg.Launcher.HistoryDSN)
		if err != nil {
			log.Warn("history sink disabled", "dsn", cfg.Launcher.HistoryDSN, "error", err)
		} else {
			defer func() { _ = sqlSink.Close() }()
			sink = sqlSink
		}
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := metrics.RegisterDefault(); err != nil {
			log.Warn("metrics registration failed", "error", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := metrics.Serve(cfg.Metrics.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server error", "error", err)
				}
			}()
			log.Info("metrics listening", "addr", cfg.Metrics.Listen)
		}
	}

	sups := make(map[string]*supervisor.Supervisor, len(cfg.Specs))
	for _, spec := range cfg.Specs {
		sup := supervisor.New(spec, bot.ExecLauncher{}, log)
		if sink != nil {
			sup.SetSink(sink)
		}
		sups[spec.Name] = sup
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for name, sup := range sups {
		wg.Add(1)
		go func(name string, sup *supervisor.Supervisor) {
			defer wg.Done()
			if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("supervisor stopped", "bot", name, "error", err)
			}
		}(name, sup)
	}

	var httpServer *http.Server
	if cfg.Server != nil && cfg.Server.Listen != "" {
		httpServer = server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, sups)
		log.Info("status API listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "supervising %d bot(s) from %s\n", len(cfg.Specs), configPath)

	<-ctx.Done()
	log.Info("shutting down")
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	wg.Wait()
	return nil
}
