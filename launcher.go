package launcher

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	cfg "github.com/bpardiwa1/agentic-launcher/internal/config"
	"github.com/bpardiwa1/agentic-launcher/internal/history"
	"github.com/bpardiwa1/agentic-launcher/internal/logger"
	"github.com/bpardiwa1/agentic-launcher/internal/metrics"
	iapi "github.com/bpardiwa1/agentic-launcher/internal/server"
	"github.com/bpardiwa1/agentic-launcher/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = bot.Spec

type Mode = bot.Mode

const (
	ModeLoop = bot.ModeLoop
	ModeOnce = bot.ModeOnce
)

type Launcher = bot.Launcher

type Handle = bot.Handle

type ExitStatus = bot.ExitStatus

type SessionConfig = logger.SessionConfig

type Snapshot = supervisor.Snapshot

type Policy = supervisor.Policy

type FixedDelay = supervisor.FixedDelay

type HistorySink = history.Sink

// Supervisor is a thin facade over internal/supervisor for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// New builds a supervisor for spec launching real OS processes.
func New(spec Spec, log *slog.Logger) *Supervisor {
	return &Supervisor{inner: supervisor.New(spec, bot.ExecLauncher{}, log)}
}

// NewWithLauncher builds a supervisor with a custom launch mechanism
// (used for testing with fake children).
func NewWithLauncher(spec Spec, l Launcher, log *slog.Logger) *Supervisor {
	return &Supervisor{inner: supervisor.New(spec, l, log)}
}

func (s *Supervisor) SetPolicy(p Policy)            { s.inner.SetPolicy(p) }
func (s *Supervisor) SetSink(sink HistorySink)      { s.inner.SetSink(sink) }
func (s *Supervisor) Run(ctx context.Context) error { return s.inner.Run(ctx) }
func (s *Supervisor) Restart() error                { return s.inner.Restart() }
func (s *Supervisor) Snapshot() Snapshot            { return s.inner.Snapshot() }
func (s *Supervisor) Spec() Spec                    { return s.inner.Spec() }

// LoadConfig reads a launcher TOML config file.
func LoadConfig(path string) (*cfg.Config, error) { return cfg.Load(path) }

// NewSQLHistorySink opens a SQL lifecycle sink from a sqlite:// or
// postgres:// DSN.
func NewSQLHistorySink(dsn string) (*history.SQLSink, error) {
	return history.NewSQLSinkFromDSN(dsn)
}

// NewHTTPServer starts the status/control API over the given supervisors.
func NewHTTPServer(addr, basePath string, sups map[string]*Supervisor) *http.Server {
	inner := make(map[string]*supervisor.Supervisor, len(sups))
	for name, s := range sups {
		inner[name] = s.inner
	}
	return iapi.NewServer(addr, basePath, inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.RegisterDefault() }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error { return metrics.Serve(addr) }
