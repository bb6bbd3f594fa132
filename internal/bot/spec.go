package bot

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/bpardiwa1/agentic-launcher/internal/logger"
)

// Mode selects how the supervisor treats the bot process.
type Mode string

const (
	// ModeLoop relaunches the bot after every exit, forever.
	ModeLoop Mode = "loop"
	// ModeOnce launches the bot a single time (dashboard/server case).
	ModeOnce Mode = "once"
)

// Spec describes one Python trading-bot process to launch. It is built once
// from flags or config and not modified afterwards.
type Spec struct {
	Name         string               `json:"name"`
	Python       string               `json:"python"`        // interpreter path (default "python3")
	Module       string               `json:"module"`        // run as "<python> -m <module>"
	Script       string               `json:"script"`        // alternative: run a script file directly
	Symbols      string               `json:"symbols"`       // comma-separated symbol list passed as --symbols
	Interval     int                  `json:"interval"`      // seconds between bot cycles, passed as --interval
	Loop         bool                 `json:"loop"`          // pass --loop to the bot itself
	LogLevel     string               `json:"loglevel"`      // passed as --loglevel
	ExtraArgs    []string             `json:"extra_args"`    // appended verbatim
	WorkDir      string               `json:"work_dir"`      // optional working dir
	EnvFile      string               `json:"env_file"`      // optional KEY=VALUE overrides file
	Env          []string             `json:"env"`           // optional extra "K=V" overrides
	Mode         Mode                 `json:"mode"`          // loop or once
	Detached     bool                 `json:"detached"`      // once-mode: new session, survives launcher exit
	RestartDelay time.Duration        `json:"restart_delay"` // wait between exit and relaunch (loop mode)
	Log          logger.SessionConfig `json:"log"`
}

// Normalized returns a copy with defaults applied.
func (s Spec) Normalized() Spec {
	if s.Python == "" {
		s.Python = "python3"
	}
	if s.Mode == "" {
		s.Mode = ModeLoop
	}
	if s.RestartDelay <= 0 {
		s.RestartDelay = 10 * time.Second
	}
	return s
}

// Validate checks the parts of the spec whose absence must be fatal before
// any launch attempt: a resolvable interpreter and a module or script.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("bot spec: name required")
	}
	if s.Module == "" && s.Script == "" {
		return fmt.Errorf("bot %s: module or script required", s.Name)
	}
	if s.Module != "" && s.Script != "" {
		return fmt.Errorf("bot %s: module and script are mutually exclusive", s.Name)
	}
	python := s.Python
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return fmt.Errorf("bot %s: interpreter %q not found: %w", s.Name, python, err)
	}
	if s.Script != "" {
		if _, err := os.Stat(s.Script); err != nil {
			return fmt.Errorf("bot %s: script %q: %w", s.Name, s.Script, err)
		}
	}
	if s.EnvFile != "" {
		// Missing env-file is non-fatal by contract; the supervisor warns
		// and launches with the inherited environment only.
		if _, err := os.Stat(s.EnvFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("bot %s: env file %q: %w", s.Name, s.EnvFile, err)
		}
	}
	return nil
}

// Args builds the interpreter argument list:
// [-m module | script] [--symbols S] [--interval N] [--loop] [--loglevel L] extra...
func (s Spec) Args() []string {
	args := make([]string, 0, 8+len(s.ExtraArgs))
	if s.Module != "" {
		args = append(args, "-m", s.Module)
	} else {
		args = append(args, s.Script)
	}
	if s.Symbols != "" {
		args = append(args, "--symbols", s.Symbols)
	}
	if s.Interval > 0 {
		args = append(args, "--interval", strconv.Itoa(s.Interval))
	}
	if s.Loop {
		args = append(args, "--loop")
	}
	if s.LogLevel != "" {
		args = append(args, "--loglevel", s.LogLevel)
	}
	args = append(args, s.ExtraArgs...)
	return args
}

// BuildCommand constructs an *exec.Cmd for the spec. Environment and stdio
// are attached by the launcher, not here.
func (s Spec) BuildCommand() *exec.Cmd {
	python := s.Python
	if python == "" {
		python = "python3"
	}
	// ok: intentional execution of the configured interpreter
	// #nosec G204
	cmd := exec.Command(python, s.Args()...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	return cmd
}
