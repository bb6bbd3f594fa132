package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	botLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "bot",
			Name:      "launches_total",
			Help:      "Number of bot process launches.",
		}, []string{"name"},
	)
	botExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "bot",
			Name:      "exits_total",
			Help:      "Number of bot process exits, labeled by outcome.",
		}, []string{"name", "outcome"},
	)
	botRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "bot",
			Name:      "restarts_total",
			Help:      "Number of automatic relaunches after an exit.",
		}, []string{"name"},
	)
	botUptime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "launcher",
			Subsystem: "bot",
			Name:      "run_duration_seconds",
			Help:      "Observed lifetime of each bot run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"name"},
	)
	botState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "bot",
			Name:      "state",
			Help:      "Current supervisor state per bot (1 = active state, 0 = inactive).",
		}, []string{"name", "state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{botLaunches, botExits, botRestarts, botUptime, botState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers with the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a standalone metrics endpoint on addr at /metrics.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncLaunch(name string) {
	if regOK.Load() {
		botLaunches.WithLabelValues(name).Inc()
	}
}

func IncExit(name string, code int) {
	if regOK.Load() {
		outcome := "ok"
		if code != 0 {
			outcome = "crash"
		}
		botExits.WithLabelValues(name, outcome).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		botRestarts.WithLabelValues(name).Inc()
	}
}

func ObserveRunDuration(name string, seconds float64) {
	if regOK.Load() {
		botUptime.WithLabelValues(name).Observe(seconds)
	}
}

func SetState(name, state string, active bool) {
	if regOK.Load() {
		var value float64
		if active {
			value = 1
		}
		botState.WithLabelValues(name, state).Set(value)
	}
}
