package bot

import (
	"io"
	"os/exec"
	"sync"
	"time"
)

// ExitStatus captures the observable outcome of one bot run.
type ExitStatus struct {
	Code      int       `json:"code"`
	Err       error     `json:"-"`
	StartedAt time.Time `json:"started_at"`
	ExitedAt  time.Time `json:"exited_at"`
}

// Handle is a running bot process as seen by the supervisor.
type Handle interface {
	PID() int
	// Wait blocks until the process exits and returns its status.
	// Safe to call more than once; later calls return the cached status.
	Wait() ExitStatus
	Alive() bool
	// Terminate asks the process group to shut down (SIGTERM on Unix).
	Terminate() error
	// Kill forcibly ends the process group.
	Kill() error
}

// Launcher starts bot processes. The supervisor only sees this interface so
// tests can substitute a fake child.
type Launcher interface {
	Start(spec Spec, environ []string, stdout, stderr io.Writer) (Handle, error)
}

// ExecLauncher launches real OS processes via os/exec.
type ExecLauncher struct{}

func (ExecLauncher) Start(spec Spec, environ []string, stdout, stderr io.Writer) (Handle, error) {
	cmd := spec.BuildCommand()
	if len(environ) > 0 {
		cmd.Env = environ
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	configureSysProcAttr(cmd, spec)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execHandle{cmd: cmd, startedAt: time.Now()}, nil
}

type execHandle struct {
	cmd       *exec.Cmd
	startedAt time.Time

	once   sync.Once
	status ExitStatus
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Wait() ExitStatus {
	h.once.Do(func() {
		err := h.cmd.Wait()
		st := ExitStatus{StartedAt: h.startedAt, ExitedAt: time.Now()}
		if err != nil {
			st.Err = err
			if ee, ok := err.(*exec.ExitError); ok {
				st.Code = ee.ExitCode()
			} else {
				st.Code = -1
			}
		}
		h.status = st
	})
	return h.status
}

func (h *execHandle) Alive() bool {
	if h.cmd.ProcessState != nil {
		return false
	}
	pid := h.PID()
	if pid <= 0 {
		return false
	}
	return processExists(pid)
}

func (h *execHandle) Terminate() error { return terminateGroup(h.PID()) }

func (h *execHandle) Kill() error { return killGroup(h.PID()) }
