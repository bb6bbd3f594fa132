package supervisor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bpardiwa1/agentic-launcher/internal/bot"
	"github.com/bpardiwa1/agentic-launcher/internal/history"
)

func waitUntil(timeout, step time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(step)
	}
	return false
}

// fakeLauncher hands out handles that exit immediately with a fixed code.
type fakeLauncher struct {
	mu       sync.Mutex
	exitCode int
	launches int32
	lastEnv  []string
}

func (f *fakeLauncher) Start(_ bot.Spec, environ []string, _, _ io.Writer) (bot.Handle, error) {
	atomic.AddInt32(&f.launches, 1)
	f.mu.Lock()
	f.lastEnv = environ
	f.mu.Unlock()
	return &fakeHandle{code: f.exitCode}, nil
}

func (f *fakeLauncher) count() int { return int(atomic.LoadInt32(&f.launches)) }

type fakeHandle struct {
	code int
}

func (h *fakeHandle) PID() int { return 9999 }
func (h *fakeHandle) Wait() bot.ExitStatus {
	now := time.Now()
	st := bot.ExitStatus{Code: h.code, StartedAt: now, ExitedAt: now}
	if h.code != 0 {
		st.Err = &exitCodeErr{code: h.code}
	}
	return st
}
func (h *fakeHandle) Alive() bool      { return false }
func (h *fakeHandle) Terminate() error { return nil }
func (h *fakeHandle) Kill() error      { return nil }

type exitCodeErr struct{ code int }

func (e *exitCodeErr) Error() string { return "exit status" }

func loopSpec(name string) bot.Spec {
	return bot.Spec{
		Name:         name,
		Python:       "sh", // resolvable interpreter for Validate
		Module:       "fx_v46.fx_main_v46",
		Mode:         bot.ModeLoop,
		RestartDelay: 5 * time.Millisecond,
	}
}

func TestLoopRelaunchesCrashedBot(t *testing.T) {
	fl := &fakeLauncher{exitCode: 137}
	s := New(loopSpec("fx"), fl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The loop must keep retrying an immediately-crashing child unboundedly;
	// three observed cycles is the contract's lower bound.
	if !waitUntil(2*time.Second, 5*time.Millisecond, func() bool { return fl.count() >= 3 }) {
		t.Fatalf("expected >=3 launches, got %d", fl.count())
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if st := s.Snapshot(); st.LastExitCode != 137 || st.ConsecutiveFailures < 3 {
		t.Fatalf("snapshot: %+v", st)
	}
}

func TestRestartDelayIsHonored(t *testing.T) {
	fl := &fakeLauncher{exitCode: 1}
	spec := loopSpec("xau")
	spec.RestartDelay = 60 * time.Millisecond
	s := New(spec, fl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	waitUntil(time.Second, time.Millisecond, func() bool { return fl.count() >= 1 })
	start := time.Now()
	waitUntil(time.Second, time.Millisecond, func() bool { return fl.count() >= 3 })
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("2 relaunch delays took %v, want >=120ms-ish", elapsed)
	}
}

func TestOnceModeDoesNotRelaunch(t *testing.T) {
	fl := &fakeLauncher{exitCode: 3}
	spec := loopSpec("acmi")
	spec.Mode = bot.ModeOnce
	s := New(spec, fl, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if fl.count() != 1 {
		t.Fatalf("launches = %d, want 1", fl.count())
	}
	st := s.Snapshot()
	if st.State != StateDone || st.LastExitCode != 3 {
		t.Fatalf("snapshot: %+v", st)
	}
}

func TestMissingInterpreterIsFatalBeforeLaunch(t *testing.T) {
	fl := &fakeLauncher{}
	spec := loopSpec("fx")
	spec.Python = "/nonexistent/python-interpreter"
	s := New(spec, fl, nil)

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected preflight error")
	}
	if fl.count() != 0 {
		t.Fatalf("launcher called %d times despite preflight failure", fl.count())
	}
}

func TestEnvFileOverridesReachChild(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "fx_v46.env")
	if err := os.WriteFile(envFile, []byte("# broker\nMT5_SERVER = Broker-Demo\nBROKEN LINE\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	fl := &fakeLauncher{exitCode: 0}
	spec := loopSpec("fx")
	spec.Mode = bot.ModeOnce
	spec.EnvFile = envFile
	s := New(spec, fl, nil)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fl.mu.Lock()
	environ := fl.lastEnv
	fl.mu.Unlock()
	found := false
	for _, kv := range environ {
		if kv == "MT5_SERVER=Broker-Demo" {
			found = true
		}
		if strings.HasPrefix(kv, "BROKEN LINE") {
			t.Fatalf("malformed line leaked into environment: %q", kv)
		}
	}
	if !found {
		t.Fatal("env-file override missing from child environment")
	}
}

func TestMissingEnvFileStillLaunches(t *testing.T) {
	fl := &fakeLauncher{exitCode: 0}
	spec := loopSpec("idx")
	spec.Mode = bot.ModeOnce
	spec.EnvFile = filepath.Join(t.TempDir(), "absent.env")
	s := New(spec, fl, nil)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fl.count() != 1 {
		t.Fatalf("launches = %d, want 1", fl.count())
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []history.Event
}

func (r *recordingSink) Send(_ context.Context, e history.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func TestSinkReceivesLifecycleEvents(t *testing.T) {
	fl := &fakeLauncher{exitCode: 2}
	spec := loopSpec("fx")
	spec.Mode = bot.ModeOnce
	s := New(spec, fl, nil)
	sink := &recordingSink{}
	s.SetSink(sink)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 {
		t.Fatalf("got %d events, want launch+exit", len(sink.events))
	}
	if sink.events[0].Type != history.EventLaunch || sink.events[1].Type != history.EventExit {
		t.Fatalf("unexpected events: %+v", sink.events)
	}
	if sink.events[1].ExitCode != 2 {
		t.Fatalf("exit event code = %d, want 2", sink.events[1].ExitCode)
	}
}

func TestFixedDelayIgnoresFailureCount(t *testing.T) {
	p := FixedDelay{Delay: 10 * time.Second}
	if p.NextDelay(0) != p.NextDelay(100) {
		t.Fatal("fixed delay must not grow")
	}
	if (FixedDelay{}).NextDelay(1) != 10*time.Second {
		t.Fatal("zero delay must fall back to the 10s default")
	}
}
