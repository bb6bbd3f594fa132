package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	"github.com/bpardiwa1/agentic-launcher/internal/env"
	"github.com/bpardiwa1/agentic-launcher/internal/history"
	"github.com/bpardiwa1/agentic-launcher/internal/metrics"
)

// State of the supervisor's run loop. Exported through Snapshot for the
// status API.
type State string

const (
	StateIdle      State = "idle"
	StateLaunching State = "launching"
	StateRunning   State = "running"
	StateSleeping  State = "sleeping"
	StateDone      State = "done" // once-mode only
)

// Snapshot is a copy of the supervisor's observable state.
type Snapshot struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	PID                 int       `json:"pid"`
	Launches            int       `json:"launches"`
	LastLaunchedAt      time.Time `json:"last_launched_at"`
	LastExitCode        int       `json:"last_exit_code"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LogPath             string    `json:"log_path,omitempty"`
}

const killGrace = 3 * time.Second

// Supervisor owns one bot process: it launches it, waits for it to exit,
// records the outcome, and (in loop mode) relaunches after the policy's
// delay, forever, until the context is cancelled.
type Supervisor struct {
	spec     bot.Spec
	launcher bot.Launcher
	policy   Policy
	log      *slog.Logger
	sink     history.Sink

	mu  sync.Mutex
	st  Snapshot
	cur bot.Handle
}

// New builds a supervisor for spec using the given launcher. A nil logger
// falls back to slog's default.
func New(spec bot.Spec, launcher bot.Launcher, log *slog.Logger) *Supervisor {
	spec = spec.Normalized()
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		spec:     spec,
		launcher: launcher,
		policy:   FixedDelay{Delay: spec.RestartDelay},
		log:      log.With("bot", spec.Name),
		st:       Snapshot{Name: spec.Name, State: StateIdle},
	}
}

// SetPolicy replaces the restart policy. Must be called before Run.
func (s *Supervisor) SetPolicy(p Policy) {
	if p != nil {
		s.policy = p
	}
}

// SetSink attaches a lifecycle history sink. Must be called before Run.
func (s *Supervisor) SetSink(sink history.Sink) { s.sink = sink }

// Spec returns the supervised spec.
func (s *Supervisor) Spec() bot.Spec { return s.spec }

// Snapshot returns a copy of the current state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Restart asks the current child to terminate; in loop mode the run loop
// relaunches it after the policy delay. No-op when nothing is running.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	h := s.cur
	s.mu.Unlock()
	if h == nil || !h.Alive() {
		return fmt.Errorf("bot %s is not running", s.spec.Name)
	}
	return h.Terminate()
}

// Run drives the supervision loop until ctx is cancelled (loop mode) or the
// child exits (once mode). Preflight failures (missing interpreter, no
// module) are returned before any launch attempt. Child exits are never
// errors.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.spec.Validate(); err != nil {
		return err
	}

	session, err := s.spec.Log.OpenSession(s.spec.Name, time.Now())
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	if session.LinkErr != nil {
		s.log.Warn("latest-log alias not updated", "error", session.LinkErr)
	}
	if session.Path != "" {
		s.log.Info("session log opened", "path", session.Path)
		s.setLogPath(session.Path)
	}

	environ := s.composeEnv()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		st := s.launchAndWait(ctx, environ, session.Writer())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.spec.Mode == bot.ModeOnce {
			s.setState(StateDone)
			return nil
		}

		delay := s.policy.NextDelay(s.Snapshot().ConsecutiveFailures)
		s.log.Warn("bot exited, relaunching",
			"exit_code", st.Code, "uptime", st.ExitedAt.Sub(st.StartedAt), "delay", delay)
		s.setState(StateSleeping)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		}
		metrics.IncRestart(s.spec.Name)
	}
}

// launchAndWait performs one Launching→Running→exit cycle. On context
// cancellation the child process group gets SIGTERM, then SIGKILL after a
// grace period.
func (s *Supervisor) launchAndWait(ctx context.Context, environ []string, logW io.Writer) bot.ExitStatus {
	s.setState(StateLaunching)

	stdout, stderr := io.Writer(os.Stdout), io.Writer(os.Stderr)
	if logW != nil {
		// File mode: both streams share the session file.
		stdout, stderr = logW, logW
	}

	h, err := s.launcher.Start(s.spec, environ, stdout, stderr)
	if err != nil {
		// Treated like a crashed run: recorded, then retried by the loop.
		s.log.Warn("launch failed", "error", err)
		s.recordExit(bot.ExitStatus{Code: -1, Err: err, StartedAt: time.Now(), ExitedAt: time.Now()})
		return bot.ExitStatus{Code: -1, Err: err}
	}

	s.recordLaunch(h)
	s.log.Info("bot launched", "pid", h.PID(), "args", s.spec.Args())

	done := make(chan bot.ExitStatus, 1)
	go func() { done <- h.Wait() }()

	select {
	case st := <-done:
		s.recordExit(st)
		return st
	case <-ctx.Done():
		_ = h.Terminate()
		select {
		case st := <-done:
			s.recordExit(st)
			return st
		case <-time.After(killGrace):
			_ = h.Kill()
			st := <-done
			s.recordExit(st)
			return st
		}
	}
}

// composeEnv builds the child environment: OS base, then env-file
// overrides, then explicit spec.Env entries. The launcher's own process
// environment is never touched. A missing env-file only warns.
func (s *Supervisor) composeEnv() []string {
	e := env.New()
	e.FromOS()
	if s.spec.EnvFile != "" {
		if err := e.LoadFile(s.spec.EnvFile); err != nil {
			s.log.Warn("env file not loaded, launching with inherited environment",
				"path", s.spec.EnvFile, "error", err)
		} else {
			s.log.Info("environment loaded", "path", s.spec.EnvFile, "overrides", len(e.Var))
		}
	}
	return e.Merge(s.spec.Env)
}

func (s *Supervisor) recordLaunch(h bot.Handle) {
	s.mu.Lock()
	s.cur = h
	s.st.State = StateRunning
	s.st.PID = h.PID()
	s.st.Launches++
	s.st.LastLaunchedAt = time.Now()
	s.mu.Unlock()

	metrics.IncLaunch(s.spec.Name)
	metrics.SetState(s.spec.Name, string(StateLaunching), false)
	metrics.SetState(s.spec.Name, string(StateRunning), true)
	s.notify(history.Event{Type: history.EventLaunch, OccurredAt: time.Now(), Bot: s.spec.Name, PID: h.PID()})
}

func (s *Supervisor) recordExit(st bot.ExitStatus) {
	s.mu.Lock()
	pid := s.st.PID
	s.cur = nil
	s.st.PID = 0
	s.st.LastExitCode = st.Code
	if st.Code == 0 {
		s.st.ConsecutiveFailures = 0
	} else {
		s.st.ConsecutiveFailures++
	}
	s.mu.Unlock()

	metrics.IncExit(s.spec.Name, st.Code)
	metrics.SetState(s.spec.Name, string(StateRunning), false)
	if !st.ExitedAt.IsZero() && !st.StartedAt.IsZero() {
		metrics.ObserveRunDuration(s.spec.Name, st.ExitedAt.Sub(st.StartedAt).Seconds())
	}
	ev := history.Event{Type: history.EventExit, OccurredAt: time.Now(), Bot: s.spec.Name, PID: pid, ExitCode: st.Code}
	if st.Err != nil {
		ev.ExitErr = st.Err.Error()
	}
	s.notify(ev)
}

func (s *Supervisor) notify(e history.Event) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Send(ctx, e); err != nil {
		s.log.Warn("history sink write failed", "event", e.Type, "error", err)
	}
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	prev := s.st.State
	s.st.State = st
	s.mu.Unlock()
	metrics.SetState(s.spec.Name, string(prev), false)
	metrics.SetState(s.spec.Name, string(st), true)
}

func (s *Supervisor) setLogPath(p string) {
	s.mu.Lock()
	s.st.LogPath = p
	s.mu.Unlock()
}
